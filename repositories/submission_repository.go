package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/lib/pq"
)

var (
	ErrSubmissionNotFound = errors.New("player info submission not found")
	ErrSubmissionInvalid  = errors.New("submission team or user invalid")
)

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.PlayerInfoSubmission) error
	GetByID(ctx context.Context, id int) (*models.PlayerInfoSubmission, error)
	ListByTeamID(ctx context.Context, teamID int) ([]models.PlayerInfoSubmission, error)
	Update(ctx context.Context, submission *models.PlayerInfoSubmission) error

	// LinkUser binds a roster-only submission to a user account.
	LinkUser(ctx context.Context, id, userID int) error

	Delete(ctx context.Context, id int) error

	// CountBySubteams returns submission counts grouped by subteam id
	// for the given institution, in one query.
	CountBySubteams(ctx context.Context, institutionID int) (map[int]int, error)
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

const submissionColumns = `id, team_id, subteam_id, user_id, player_name, jersey_number, jersey_size, position, created_at`

func scanSubmission(row interface{ Scan(...interface{}) error }) (*models.PlayerInfoSubmission, error) {
	var s models.PlayerInfoSubmission
	var subteamID sql.NullInt64
	err := row.Scan(
		&s.ID,
		&s.TeamID,
		&subteamID,
		&s.UserID,
		&s.PlayerName,
		&s.JerseyNumber,
		&s.JerseySize,
		&s.Position,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if subteamID.Valid {
		id := int(subteamID.Int64)
		s.SubteamID = &id
	}
	return &s, nil
}

func (r *postgresSubmissionRepository) Create(ctx context.Context, submission *models.PlayerInfoSubmission) error {
	query := `
		INSERT INTO player_info_submissions (team_id, subteam_id, user_id, player_name, jersey_number, jersey_size, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		submission.TeamID,
		submission.SubteamID,
		submission.UserID,
		submission.PlayerName,
		submission.JerseyNumber,
		submission.JerseySize,
		submission.Position,
	).Scan(&submission.ID, &submission.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrSubmissionInvalid
		}
		return err
	}
	return nil
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id int) (*models.PlayerInfoSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM player_info_submissions WHERE id = $1`

	submission, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

func (r *postgresSubmissionRepository) ListByTeamID(ctx context.Context, teamID int) ([]models.PlayerInfoSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM player_info_submissions WHERE team_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]models.PlayerInfoSubmission, 0)
	for rows.Next() {
		submission, scanErr := scanSubmission(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		submissions = append(submissions, *submission)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *postgresSubmissionRepository) Update(ctx context.Context, submission *models.PlayerInfoSubmission) error {
	query := `
		UPDATE player_info_submissions
		SET player_name = $1, jersey_number = $2, jersey_size = $3, position = $4, subteam_id = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		submission.PlayerName,
		submission.JerseyNumber,
		submission.JerseySize,
		submission.Position,
		submission.SubteamID,
		submission.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}

func (r *postgresSubmissionRepository) LinkUser(ctx context.Context, id, userID int) error {
	query := `UPDATE player_info_submissions SET user_id = $1 WHERE id = $2 AND user_id IS NULL`

	result, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrSubmissionInvalid
		}
		return err
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}

func (r *postgresSubmissionRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM player_info_submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}

func (r *postgresSubmissionRepository) CountBySubteams(ctx context.Context, institutionID int) (map[int]int, error) {
	query := `
		SELECT s.subteam_id, COUNT(*)
		FROM player_info_submissions s
		JOIN subteams st ON st.id = s.subteam_id
		WHERE st.institution_id = $1
		GROUP BY s.subteam_id`

	rows, err := r.db.QueryContext(ctx, query, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var subteamID, count int
		if scanErr := rows.Scan(&subteamID, &count); scanErr != nil {
			return nil, scanErr
		}
		counts[subteamID] = count
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
