package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/pkg/database"
)

const submissionColumns = `s.id::text, s.team_id::text, s.item_id, s.item_label, s.points, s.item_type,
		       coalesce(s.file_path, ''), s.ig_post_url, s.created_at`

// submissionRepository handles submission facts in PostgreSQL
type submissionRepository struct {
	db *database.PostgresDB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *database.PostgresDB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Create inserts a submission. The (team_id, item_id) unique constraint is the
// only guard against duplicates; callers inspect the error with IsUniqueViolation.
func (r *submissionRepository) Create(ctx context.Context, sub domain.NewSubmission) (*domain.Submission, error) {
	query := `
		INSERT INTO submissions AS s (team_id, item_id, item_label, points, item_type, file_path, ig_post_url)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
		RETURNING ` + submissionColumns

	row := r.db.Pool.QueryRow(ctx, query,
		sub.TeamID,
		sub.ItemID,
		sub.ItemLabel,
		sub.Points,
		string(sub.ItemType),
		sub.FilePath,
		sub.IGPostURL,
	)

	created, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	return created, nil
}

// ListScoringFacts returns team id, team name and points for every submission
func (r *submissionRepository) ListScoringFacts(ctx context.Context) ([]domain.ScoringFact, error) {
	query := `
		SELECT s.team_id::text, coalesce(t.team_name, ''), coalesce(s.points, 0)
		FROM submissions s
		LEFT JOIN teams t ON t.id = s.team_id
		ORDER BY s.created_at, s.id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring facts: %w", err)
	}
	defer rows.Close()

	facts := make([]domain.ScoringFact, 0)
	for rows.Next() {
		var fact domain.ScoringFact
		if err := rows.Scan(&fact.TeamID, &fact.TeamName, &fact.Points); err != nil {
			return nil, fmt.Errorf("failed to scan scoring fact: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scoring facts: %w", err)
	}

	return facts, nil
}

// ListByTeam returns one team's submissions
func (r *submissionRepository) ListByTeam(ctx context.Context, teamID string) ([]domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions s
		WHERE s.team_id::text = $1
		ORDER BY s.created_at, s.id
	`

	rows, err := r.db.Pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return subs, nil
}

// ListWithTeams returns all submissions with their team names, oldest first
func (r *submissionRepository) ListWithTeams(ctx context.Context) ([]domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `, coalesce(t.team_name, '')
		FROM submissions s
		LEFT JOIN teams t ON t.id = s.team_id
		ORDER BY s.created_at ASC, s.id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Submission, 0)
	for rows.Next() {
		var sub domain.Submission
		var itemType string
		if err := rows.Scan(
			&sub.ID,
			&sub.TeamID,
			&sub.ItemID,
			&sub.ItemLabel,
			&sub.Points,
			&itemType,
			&sub.FilePath,
			&sub.IGPostURL,
			&sub.CreatedAt,
			&sub.TeamName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		sub.ItemType = domain.ItemType(itemType)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return subs, nil
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var sub domain.Submission
	var itemType string
	err := row.Scan(
		&sub.ID,
		&sub.TeamID,
		&sub.ItemID,
		&sub.ItemLabel,
		&sub.Points,
		&itemType,
		&sub.FilePath,
		&sub.IGPostURL,
		&sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.ItemType = domain.ItemType(itemType)
	return &sub, nil
}
