package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/pkg/database"
)

// teamRepository handles team rows in PostgreSQL
type teamRepository struct {
	db *database.PostgresDB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *database.PostgresDB) TeamRepository {
	return &teamRepository{db: db}
}

// Create inserts a team and returns it with its generated id
func (r *teamRepository) Create(ctx context.Context, name string) (*domain.Team, error) {
	query := `
		INSERT INTO teams (team_name)
		VALUES ($1)
		RETURNING id::text, team_name, created_at
	`

	team := &domain.Team{}
	err := r.db.Pool.QueryRow(ctx, query, name).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// ListWithMemberCount returns teams ordered by name with their member_count
func (r *teamRepository) ListWithMemberCount(ctx context.Context) ([]domain.Team, error) {
	query := `
		SELECT id::text, team_name, member_count, created_at
		FROM teams
		ORDER BY team_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.MemberCount, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

// listAllTeamsQuery reads only the columns every teams table has
const listAllTeamsQuery = `
		SELECT id::text, team_name
		FROM teams
		ORDER BY team_name
	`

// ListAll returns teams ordered by name, for schemas without member_count
func (r *teamRepository) ListAll(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.db.Pool.Query(ctx, listAllTeamsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

// GetByID retrieves a team by id
func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	query := `
		SELECT id::text, team_name, created_at
		FROM teams
		WHERE id::text = $1
	`

	team := &domain.Team{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return team, nil
}
