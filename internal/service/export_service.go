package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vntrbirds-be/internal/domain"
	apperrors "vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
)

// Export names and messages
const (
	ArchiveName      = "vntrbirds-submissions.zip"
	StandingsName    = "leaderboard.xlsx"
	MsgExportFailed  = "Download failed. Please try again."
	standingsSheet   = "Leaderboard"
	unnamedTeamEntry = "team"
)

// ExportStats summarizes one archive
type ExportStats struct {
	Teams   int `json:"teams"`
	Files   int `json:"files"`
	Skipped int `json:"skipped"`
}

type exportService struct {
	blobs   BlobStore
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewExportService creates the admin export
func NewExportService(blobs BlobStore, log *logger.Logger, m *metrics.Metrics) ExportService {
	return &exportService{
		blobs:   blobs,
		logger:  log.Named("export"),
		metrics: m,
	}
}

// ExportAll writes a zip with one folder per team and one file per find.
// Finds without a stored file, or whose download fails, are skipped.
func (s *exportService) ExportAll(ctx context.Context, teams []domain.TeamWithSubmissions, w io.Writer) (*ExportStats, error) {
	stats := &ExportStats{}
	zw := zip.NewWriter(w)

	for _, team := range teams {
		folder := archiveFolder(team.TeamName)
		stats.Teams++

		for _, sub := range team.Submissions {
			if err := ctx.Err(); err != nil {
				_ = zw.Close()
				return nil, exportError(err)
			}

			if sub.FilePath == "" {
				stats.Skipped++
				s.metrics.ExportFile("skipped")
				continue
			}

			data, err := s.blobs.Download(ctx, sub.FilePath)
			if err != nil {
				stats.Skipped++
				s.metrics.ExportFile("skipped")
				s.logger.WithError(err).WithField("file_path", sub.FilePath).Warn("Skipping file that failed to download")
				continue
			}

			header := &zip.FileHeader{
				Name:     path.Join(folder, fmt.Sprintf("%s.%s", sub.ItemID, FileExtension(sub.FilePath))),
				Method:   zip.Deflate,
				Modified: sub.CreatedAt,
			}
			entry, err := zw.CreateHeader(header)
			if err != nil {
				_ = zw.Close()
				return nil, exportError(err)
			}
			if _, err := entry.Write(data); err != nil {
				_ = zw.Close()
				return nil, exportError(err)
			}

			stats.Files++
			s.metrics.ExportFile("written")
		}
	}

	if err := zw.Close(); err != nil {
		return nil, exportError(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"teams":   stats.Teams,
		"files":   stats.Files,
		"skipped": stats.Skipped,
	}).Info("Submissions archive built")

	return stats, nil
}

// ExportStandings writes a one-sheet workbook of the standings
func (s *exportService) ExportStandings(ctx context.Context, scores []domain.TeamScore, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), standingsSheet); err != nil {
		return exportError(err)
	}

	header := []interface{}{"Rank", "Team", "Points", "Items"}
	if err := f.SetSheetRow(standingsSheet, "A1", &header); err != nil {
		return exportError(err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return exportError(err)
	}
	if err := f.SetCellStyle(standingsSheet, "A1", "D1", bold); err != nil {
		return exportError(err)
	}
	if err := f.SetColWidth(standingsSheet, "B", "B", 36); err != nil {
		return exportError(err)
	}

	for i, score := range scores {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return exportError(err)
		}
		row := []interface{}{score.Rank, score.TeamName, score.TotalPoints, score.ItemCount}
		if err := f.SetSheetRow(standingsSheet, cell, &row); err != nil {
			return exportError(err)
		}
	}

	if err := f.Write(w); err != nil {
		return exportError(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"teams":        len(scores),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}).Info("Standings workbook built")
	return nil
}

// archiveFolder keeps the team name as the folder but never lets it nest or escape
func archiveFolder(teamName string) string {
	name := strings.TrimSpace(teamName)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return unnamedTeamEntry
	}
	return name
}

func exportError(err error) error {
	appErr := apperrors.NewInternalError(MsgExportFailed, err)
	appErr.Retryable = true
	return appErr
}
