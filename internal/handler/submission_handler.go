package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/middleware"
	"vntrbirds-be/internal/service"
	"vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

// NDJSONContentType selects the streaming progress response
const NDJSONContentType = "application/x-ndjson"

// MsgSubmissionsClosed is shown while the admin has paused the hunt
const MsgSubmissionsClosed = "Submissions are closed right now."

// uploadWriteWindow covers a slow phone upload plus the storage round trip
const uploadWriteWindow = 15 * time.Minute

// SubmissionHandler accepts finds as multipart uploads
type SubmissionHandler struct {
	intake    service.IntakeService
	settings  service.SettingsService
	maxMemory int64
	logger    *logger.Logger
}

// NewSubmissionHandler creates a new submission handler. maxMemoryMB bounds
// how much of a multipart body is held in memory before spilling to disk.
func NewSubmissionHandler(intake service.IntakeService, settings service.SettingsService, maxMemoryMB int64, log *logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		intake:    intake,
		settings:  settings,
		maxMemory: maxMemoryMB << 20,
		logger:    log.Named("submissions"),
	}
}

// AlreadyFoundResponse is the soft duplicate outcome
type AlreadyFoundResponse struct {
	AlreadyFound bool   `json:"already_found"`
	Message      string `json:"message"`
}

// ProgressLine is one streamed progress update
type ProgressLine struct {
	Progress int `json:"progress"`
}

// ErrorLine is the terminal line of a failed streamed submission
type ErrorLine struct {
	Error struct {
		Type      errors.ErrorType `json:"type"`
		Message   string           `json:"message"`
		Retryable bool             `json:"retryable,omitempty"`
	} `json:"error"`
}

// Submit handles POST /api/submissions
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.settings.SubmissionsOpen() {
		middleware.WriteError(w, r, errors.NewSubmissionsClosedError(MsgSubmissionsClosed), h.logger)
		return
	}

	rc := http.NewResponseController(w)
	deadline := time.Now().Add(uploadWriteWindow)
	_ = rc.SetReadDeadline(deadline)
	_ = rc.SetWriteDeadline(deadline)

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		middleware.WriteError(w, r, errors.NewValidationError("Invalid upload", map[string]interface{}{
			"reason": err.Error(),
		}), h.logger)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.WithError(err).Warn("Failed to remove multipart temp files")
		}
	}()

	req := domain.SubmitRequest{
		Session:   requestSession(r),
		ItemID:    strings.TrimSpace(r.FormValue("item_id")),
		IGPostURL: r.FormValue("ig_post_url"),
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.File = &domain.UploadFile{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
		}
	}

	if strings.Contains(r.Header.Get("Accept"), NDJSONContentType) {
		h.submitStreaming(w, r, rc, req)
		return
	}

	result, err := h.intake.SubmitFind(r.Context(), req, nil)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeAlreadyFound) {
			respondJSON(w, http.StatusOK, AlreadyFoundResponse{AlreadyFound: true, Message: service.MsgAlreadyFound})
			return
		}
		respondError(w, r, err, service.MsgUploadFailed, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (h *SubmissionHandler) submitStreaming(w http.ResponseWriter, r *http.Request, rc *http.ResponseController, req domain.SubmitRequest) {
	w.Header().Set("Content-Type", NDJSONContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := &lineWriter{enc: json.NewEncoder(w), flush: rc.Flush}

	result, err := h.intake.SubmitFind(r.Context(), req, func(percent int) {
		out.write(ProgressLine{Progress: percent})
	})

	switch {
	case err == nil:
		out.finish(result)
	case errors.IsType(err, errors.ErrorTypeAlreadyFound):
		out.finish(AlreadyFoundResponse{AlreadyFound: true, Message: service.MsgAlreadyFound})
	default:
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.NewUploadError(service.MsgUploadFailed, err)
		}
		h.logger.WithError(err).WithField("request_id", middleware.GetRequestID(r.Context())).
			Debug("Streamed submission failed")

		var line ErrorLine
		line.Error.Type = appErr.Type
		line.Error.Message = appErr.Message
		line.Error.Retryable = appErr.Retryable
		out.finish(line)
	}
}

// requestSession prefers explicit team form fields over the session cookie
func requestSession(r *http.Request) domain.Session {
	form := domain.Session{
		TeamID:   strings.TrimSpace(r.FormValue("team_id")),
		TeamName: strings.TrimSpace(r.FormValue("team_name")),
	}
	if form.Valid() {
		return form
	}
	if s := readSession(r); s != nil {
		return *s
	}
	return form
}

// lineWriter serializes NDJSON lines. Nothing is written after the final line.
type lineWriter struct {
	mu    sync.Mutex
	enc   *json.Encoder
	flush func() error
	done  bool
}

func (l *lineWriter) write(v interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return
	}
	if err := l.enc.Encode(v); err != nil {
		l.done = true
		return
	}
	_ = l.flush()
}

func (l *lineWriter) finish(v interface{}) {
	l.write(v)

	l.mu.Lock()
	l.done = true
	l.mu.Unlock()
}
