package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vntrbirds-be/internal/config"
	"vntrbirds-be/pkg/logger"
)

// StorageError is a non-2xx answer from Supabase Storage
type StorageError struct {
	StatusCode int
	Body       string
	Message    string // "message" field of the JSON body, when present
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("Supabase storage returned status %d: %s", e.StatusCode, e.Body)
}

// IsObjectExists reports whether err is storage refusing to overwrite an object
func IsObjectExists(err error) bool {
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		return false
	}
	if storageErr.StatusCode == http.StatusConflict {
		return true
	}
	// Storage also answers 400 with a "409"/"Duplicate" body for existing objects
	return storageErr.StatusCode == http.StatusBadRequest &&
		(strings.Contains(storageErr.Body, "Duplicate") || strings.Contains(storageErr.Body, `"409"`))
}

// SupabaseClient talks to the Supabase Storage REST API for one bucket
type SupabaseClient struct {
	baseURL    string
	bucket     string
	key        string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewSupabaseClient creates a new Supabase storage client
func NewSupabaseClient(cfg *config.Config, logger *logger.Logger) *SupabaseClient {
	return &SupabaseClient{
		baseURL: cfg.SupabaseURL,
		bucket:  cfg.StorageBucket,
		key:     cfg.StorageKey(),
		httpClient: &http.Client{
			// Large videos over event wifi; the request context bounds each call
			Timeout: 10 * time.Minute,
		},
		logger: logger.Named("storage"),
	}
}

func (s *SupabaseClient) objectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(path, "/"))
}

func (s *SupabaseClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.key))
	req.Header.Set("apikey", s.key)
}

// Upload sends r to the bucket without upsert, so an existing path is an error
func (s *SupabaseClient) Upload(ctx context.Context, path, contentType string, r io.Reader, size int64, onProgress UploadProgressFunc) error {
	body := &progressReader{r: r, total: size, onProgress: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if size > 0 {
		req.ContentLength = size
	}

	s.authorize(req)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	req.Header.Set("cache-control", "max-age=3600")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload to Supabase storage: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStorageResponse(resp); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"path":        path,
			"status_code": resp.StatusCode,
		}).WithError(err).Warn("Storage upload rejected")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"path":        path,
		"bytes":       body.loaded,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Uploaded object")

	return nil
}

// Download reads an object with the configured key
func (s *SupabaseClient) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download from Supabase storage: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStorageResponse(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", path, err)
	}
	return data, nil
}

// PublicURL returns the public object URL for path
func (s *SupabaseClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(path, "/"))
}

func checkStorageResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	storageErr := &StorageError{StatusCode: resp.StatusCode, Body: string(body)}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		storageErr.Message = parsed.Message
		if storageErr.Message == "" {
			storageErr.Message = parsed.Error
		}
	}
	return storageErr
}

// progressReader reports cumulative bytes read from the wrapped reader
type progressReader struct {
	r          io.Reader
	total      int64
	loaded     int64
	onProgress UploadProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.onProgress != nil && p.total > 0 {
			p.onProgress(p.loaded, p.total)
		}
	}
	return n, err
}
