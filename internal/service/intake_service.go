package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"vntrbirds-be/internal/catalog"
	"vntrbirds-be/internal/domain"
	"vntrbirds-be/internal/realtime"
	"vntrbirds-be/internal/repository"
	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
)

// User-facing intake messages
const (
	MsgAlreadyFound  = "You already found this one!"
	MsgUploadFailed  = "Upload failed. Please try again."
	MsgMissingTeam   = "Join or create a team first."
	MsgMissingItem   = "Pick an item to submit."
	MsgMissingFile   = "Choose a photo or video to upload."
	MsgUnknownItem   = "That item is not on the list."
	MsgInvalidTeamID = "Your team session is invalid. Join your team again."
)

// Progress checkpoints. Upload bytes map onto [progressStart, progressUploaded].
const (
	progressStart    = 5
	progressUploaded = 90
	progressDone     = 100
	progressSpan     = progressUploaded - progressStart
)

const defaultExtension = "bin"

type intakeService struct {
	catalog      *catalog.Catalog
	submissions  repository.SubmissionRepository
	blobs        BlobStore
	feed         realtime.Feed
	logger       *logger.Logger
	metrics      *metrics.Metrics
	maxFileBytes int64
	now          func() time.Time
}

// IntakeOption customizes the intake service
type IntakeOption func(*intakeService)

// WithClock overrides the clock used for storage paths
func WithClock(now func() time.Time) IntakeOption {
	return func(s *intakeService) { s.now = now }
}

// NewIntakeService creates the submission intake
func NewIntakeService(
	cat *catalog.Catalog,
	submissions repository.SubmissionRepository,
	blobs BlobStore,
	feed realtime.Feed,
	maxFileMB int64,
	log *logger.Logger,
	m *metrics.Metrics,
	opts ...IntakeOption,
) IntakeService {
	s := &intakeService{
		catalog:      cat,
		submissions:  submissions,
		blobs:        blobs,
		feed:         feed,
		logger:       log.Named("intake"),
		metrics:      m,
		maxFileBytes: maxFileMB * 1024 * 1024,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitFind uploads the proof, then inserts the submission row.
// The row is the source of truth: a duplicate (team, item) insert is reported
// as already found even though its blob was stored.
func (s *intakeService) SubmitFind(ctx context.Context, req domain.SubmitRequest, progress ProgressFunc) (*domain.SubmitResult, error) {
	item, err := s.validate(req)
	if err != nil {
		s.metrics.SubmissionOutcome("invalid")
		return nil, err
	}

	log := s.logger.WithFields(map[string]interface{}{
		"team_id": req.Session.TeamID,
		"item_id": item.ID,
	})

	reporter := newProgressReporter(progress)
	reporter.Report(progressStart)

	path := BuildStoragePath(req.Session.TeamName, item.ID, req.File.Name, s.now())
	contentType := req.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	err = s.blobs.Upload(ctx, path, contentType, req.File.Reader, req.File.Size, func(loaded, total int64) {
		reporter.Report(UploadPercent(loaded, total))
	})
	s.metrics.ObserveUpload(time.Since(start))
	if err != nil && IsObjectExists(err) {
		// Same team, item and millisecond: another request stored this path first.
		// The unique (team, item) row decides which one counts.
		log.WithField("file_path", path).Debug("Blob already stored, recording submission")
		err = nil
	}
	if err != nil {
		s.metrics.SubmissionOutcome("upload_failed")
		log.WithError(err).Warn("Upload failed")
		return nil, apperrors.NewUploadError(failureMessage(err), err)
	}
	reporter.Report(progressUploaded)

	sub, err := s.submissions.Create(ctx, domain.NewSubmission{
		TeamID:    req.Session.TeamID,
		ItemID:    item.ID,
		ItemLabel: item.Label,
		Points:    item.Points,
		ItemType:  item.ItemType,
		FilePath:  path,
		IGPostURL: igPostURL(item, req.IGPostURL),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			s.metrics.SubmissionOutcome("already_found")
			log.Info("Item already found by team")
			return nil, apperrors.NewAlreadyFoundError(MsgAlreadyFound, err)
		}
		s.metrics.SubmissionOutcome("insert_failed")
		log.WithError(err).Error("Failed to record submission")
		return nil, apperrors.NewUploadError(failureMessage(err), err)
	}
	reporter.Report(progressDone)

	sub.TeamName = req.Session.TeamName
	s.metrics.SubmissionOutcome("stored")
	log.WithFields(map[string]interface{}{
		"submission_id": sub.ID,
		"points":        sub.Points,
		"bytes":         req.File.Size,
	}).Info("Submission stored")

	s.publish(ctx, sub)

	return &domain.SubmitResult{
		Submission:  sub,
		SizeWarning: s.maxFileBytes > 0 && req.File.Size > s.maxFileBytes,
	}, nil
}

func (s *intakeService) validate(req domain.SubmitRequest) (domain.Item, error) {
	if !req.Session.Valid() {
		return domain.Item{}, apperrors.NewValidationError(MsgMissingTeam, nil)
	}
	if _, err := uuid.Parse(req.Session.TeamID); err != nil {
		return domain.Item{}, apperrors.NewValidationError(MsgInvalidTeamID, nil)
	}
	if strings.TrimSpace(req.ItemID) == "" {
		return domain.Item{}, apperrors.NewValidationError(MsgMissingItem, nil)
	}
	if req.File == nil || req.File.Reader == nil {
		return domain.Item{}, apperrors.NewValidationError(MsgMissingFile, nil)
	}

	item, ok := s.catalog.Get(strings.TrimSpace(req.ItemID))
	if !ok {
		return domain.Item{}, apperrors.NewValidationError(MsgUnknownItem, map[string]interface{}{
			"item_id": req.ItemID,
		})
	}
	return item, nil
}

func (s *intakeService) publish(ctx context.Context, sub *domain.Submission) {
	if s.feed == nil {
		return
	}

	event, err := realtime.NewEvent(realtime.TopicSubmissions, realtime.EventInsert, sub)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode submission event")
		return
	}
	event.TeamID = sub.TeamID

	// The request may already be finishing; the event must still go out
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.feed.Publish(pubCtx, event); err != nil {
		s.logger.WithError(err).WithField("submission_id", sub.ID).Warn("Failed to publish submission event")
	}
}

// BuildStoragePath returns "{team}/{item}-{unixMillis}.{ext}" for an upload
func BuildStoragePath(teamName, itemID, fileName string, at time.Time) string {
	return fmt.Sprintf("%s/%s-%d.%s", SanitizeTeamName(teamName), itemID, at.UnixMilli(), FileExtension(fileName))
}

// SanitizeTeamName replaces every rune outside [a-zA-Z0-9_-] with '_'
func SanitizeTeamName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FileExtension is the text after the last '.', or "bin" when there is none
func FileExtension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return defaultExtension
	}
	ext := name[i+1:]
	if strings.ContainsAny(ext, "/\\") {
		return defaultExtension
	}
	return ext
}

// UploadPercent maps uploaded bytes onto the 5..90 progress band
func UploadPercent(loaded, total int64) int {
	if total <= 0 {
		return progressStart
	}
	ratio := float64(loaded) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	return progressStart + int(math.Round(ratio*progressSpan))
}

func igPostURL(item domain.Item, raw string) *string {
	if !item.IsHypeVideo() {
		return nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// failureMessage surfaces the store's own message when it has one
func failureMessage(err error) string {
	var storageErr *StorageError
	if errors.As(err, &storageErr) && storageErr.Message != "" {
		return storageErr.Message
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Message != "" {
		return pgErr.Message
	}
	return MsgUploadFailed
}

// progressReporter forwards strictly increasing percentages
type progressReporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn, last: -1}
}

func (p *progressReporter) Report(percent int) {
	if p.fn == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if percent <= p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}
