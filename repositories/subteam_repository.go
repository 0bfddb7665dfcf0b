package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/lib/pq"
)

var (
	ErrSubteamNotFound = errors.New("subteam not found")
	ErrSubteamInvalid  = errors.New("subteam institution or coach invalid")
)

type SubteamRepository interface {
	Create(ctx context.Context, subteam *models.Subteam) error
	GetByID(ctx context.Context, id int) (*models.Subteam, error)
	ListByInstitutionID(ctx context.Context, institutionID int) ([]models.Subteam, error)
	ListByCoach(ctx context.Context, institutionID, coachUserID int) ([]models.Subteam, error)
	AssignCoach(ctx context.Context, id int, coachUserID *int) error
	Delete(ctx context.Context, id int) error
}

type postgresSubteamRepository struct {
	db *sql.DB
}

func NewPostgresSubteamRepository(db *sql.DB) SubteamRepository {
	return &postgresSubteamRepository{db: db}
}

const subteamColumns = `id, institution_id, name, sport, coach_user_id, created_at`

func scanSubteam(row interface{ Scan(...interface{}) error }) (*models.Subteam, error) {
	var s models.Subteam
	err := row.Scan(
		&s.ID,
		&s.InstitutionID,
		&s.Name,
		&s.Sport,
		&s.CoachUserID,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresSubteamRepository) Create(ctx context.Context, subteam *models.Subteam) error {
	query := `
		INSERT INTO subteams (institution_id, name, sport, coach_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		subteam.InstitutionID,
		subteam.Name,
		subteam.Sport,
		subteam.CoachUserID,
	).Scan(&subteam.ID, &subteam.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrSubteamInvalid
		}
		return err
	}
	return nil
}

func (r *postgresSubteamRepository) GetByID(ctx context.Context, id int) (*models.Subteam, error) {
	query := `SELECT ` + subteamColumns + ` FROM subteams WHERE id = $1`

	subteam, err := scanSubteam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubteamNotFound
		}
		return nil, err
	}
	return subteam, nil
}

func (r *postgresSubteamRepository) ListByInstitutionID(ctx context.Context, institutionID int) ([]models.Subteam, error) {
	query := `SELECT ` + subteamColumns + ` FROM subteams WHERE institution_id = $1 ORDER BY created_at`

	return r.list(ctx, query, institutionID)
}

func (r *postgresSubteamRepository) ListByCoach(ctx context.Context, institutionID, coachUserID int) ([]models.Subteam, error) {
	query := `SELECT ` + subteamColumns + ` FROM subteams WHERE institution_id = $1 AND coach_user_id = $2 ORDER BY created_at`

	return r.list(ctx, query, institutionID, coachUserID)
}

func (r *postgresSubteamRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Subteam, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subteams := make([]models.Subteam, 0)
	for rows.Next() {
		subteam, scanErr := scanSubteam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		subteams = append(subteams, *subteam)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return subteams, nil
}

func (r *postgresSubteamRepository) AssignCoach(ctx context.Context, id int, coachUserID *int) error {
	query := `UPDATE subteams SET coach_user_id = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, coachUserID, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrSubteamInvalid
		}
		return err
	}
	return checkAffectedRows(result, ErrSubteamNotFound)
}

func (r *postgresSubteamRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subteams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSubteamNotFound)
}
