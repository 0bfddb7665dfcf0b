package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/lib/pq"
)

var (
	ErrDesignRequestNotFound = errors.New("design request not found")
	ErrDesignRequestInvalid  = errors.New("design request team or requester invalid")

	// ErrDesignStatusConflict means the row's status no longer matched
	// the expected one at write time (another session won the race).
	ErrDesignStatusConflict = errors.New("design request status changed concurrently")
)

type DesignRequestRepository interface {
	Create(ctx context.Context, request *models.DesignRequest) error
	GetByID(ctx context.Context, id int) (*models.DesignRequest, error)
	ListByTeamID(ctx context.Context, teamID int) ([]models.DesignRequest, error)
	ListRecentByTeamID(ctx context.Context, teamID, limit int) ([]models.DesignRequest, error)

	// UpdateStatus applies from -> to conditionally: the UPDATE only
	// matches while the row still holds the expected status, so two
	// concurrent sessions cannot both apply the same transition. A
	// non-nil feedback replaces the stored feedback text. exec may be
	// a transaction.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.DesignStatus, feedback *string) error

	// RebindDesign swaps the catalog design and resets the request to
	// pending, conditionally on the current status.
	RebindDesign(ctx context.Context, id int, designID int, from models.DesignStatus) error

	SetMockups(ctx context.Context, id int, keys []string, homeKey, awayKey *string) error
	Delete(ctx context.Context, id int) error
	CountOpen(ctx context.Context) (int, error)
}

type postgresDesignRequestRepository struct {
	db *sql.DB
}

func NewPostgresDesignRequestRepository(db *sql.DB) DesignRequestRepository {
	return &postgresDesignRequestRepository{db: db}
}

const designRequestColumns = `id, team_id, subteam_id, design_id, requester_id, status, primary_color, secondary_color, feedback, mockup_keys, home_mockup_key, away_mockup_key, created_at, updated_at`

func scanDesignRequest(row interface{ Scan(...interface{}) error }) (*models.DesignRequest, error) {
	var d models.DesignRequest
	err := row.Scan(
		&d.ID,
		&d.TeamID,
		&d.SubteamID,
		&d.DesignID,
		&d.RequesterID,
		&d.Status,
		&d.PrimaryColor,
		&d.SecondaryColor,
		&d.Feedback,
		pq.Array(&d.MockupKeys),
		&d.HomeMockupKey,
		&d.AwayMockupKey,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *postgresDesignRequestRepository) Create(ctx context.Context, request *models.DesignRequest) error {
	query := `
		INSERT INTO design_requests (team_id, subteam_id, design_id, requester_id, status, primary_color, secondary_color, mockup_keys)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		request.TeamID,
		request.SubteamID,
		request.DesignID,
		request.RequesterID,
		request.Status,
		request.PrimaryColor,
		request.SecondaryColor,
		pq.Array(request.MockupKeys),
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrDesignRequestInvalid
		}
		return err
	}
	return nil
}

func (r *postgresDesignRequestRepository) GetByID(ctx context.Context, id int) (*models.DesignRequest, error) {
	query := `SELECT ` + designRequestColumns + ` FROM design_requests WHERE id = $1`

	request, err := scanDesignRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDesignRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

func (r *postgresDesignRequestRepository) ListByTeamID(ctx context.Context, teamID int) ([]models.DesignRequest, error) {
	query := `SELECT ` + designRequestColumns + ` FROM design_requests WHERE team_id = $1 ORDER BY created_at DESC`

	return r.list(ctx, query, teamID)
}

func (r *postgresDesignRequestRepository) ListRecentByTeamID(ctx context.Context, teamID, limit int) ([]models.DesignRequest, error) {
	query := `SELECT ` + designRequestColumns + ` FROM design_requests WHERE team_id = $1 ORDER BY updated_at DESC LIMIT $2`

	return r.list(ctx, query, teamID, limit)
}

func (r *postgresDesignRequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.DesignRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.DesignRequest, 0)
	for rows.Next() {
		request, scanErr := scanDesignRequest(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		requests = append(requests, *request)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *postgresDesignRequestRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.DesignStatus, feedback *string) error {
	if exec == nil {
		exec = r.db
	}

	var result sql.Result
	var err error
	if feedback != nil {
		query := `UPDATE design_requests SET status = $1, feedback = $2, updated_at = NOW() WHERE id = $3 AND status = $4`
		result, err = exec.ExecContext(ctx, query, to, *feedback, id, from)
	} else {
		query := `UPDATE design_requests SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
		result, err = exec.ExecContext(ctx, query, to, id, from)
	}
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Distinguish a missing row from a lost race.
		var exists bool
		if checkErr := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM design_requests WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
			return checkErr
		}
		if !exists {
			return ErrDesignRequestNotFound
		}
		return ErrDesignStatusConflict
	}
	return nil
}

func (r *postgresDesignRequestRepository) RebindDesign(ctx context.Context, id int, designID int, from models.DesignStatus) error {
	query := `
		UPDATE design_requests
		SET design_id = $1, status = 'pending', feedback = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, designID, id, from)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrDesignStatusConflict
	}
	return nil
}

func (r *postgresDesignRequestRepository) SetMockups(ctx context.Context, id int, keys []string, homeKey, awayKey *string) error {
	query := `
		UPDATE design_requests
		SET mockup_keys = $1, home_mockup_key = $2, away_mockup_key = $3, updated_at = NOW()
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, pq.Array(keys), homeKey, awayKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDesignRequestNotFound)
}

func (r *postgresDesignRequestRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM design_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDesignRequestNotFound)
}

func (r *postgresDesignRequestRepository) CountOpen(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM design_requests WHERE status NOT IN ('rejected', 'cancelled', 'delivered')`

	var count int
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
