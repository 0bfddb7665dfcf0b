package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/lib/pq"
)

var (
	ErrInviteNotFound      = errors.New("invite not found")
	ErrInviteTokenConflict = errors.New("invite token conflict")
	ErrInviteTeamInvalid   = errors.New("invite team invalid")
)

type InviteRepository interface {
	Create(ctx context.Context, invite *models.TeamInvite) error
	GetByID(ctx context.Context, id int) (*models.TeamInvite, error)
	GetByToken(ctx context.Context, token string) (*models.TeamInvite, error)
	ListPendingByTeamID(ctx context.Context, teamID int) ([]models.TeamInvite, error)

	// MarkAccepted flips a pending invite to accepted. Returns
	// ErrInviteNotFound when the invite is not pending anymore.
	MarkAccepted(ctx context.Context, id int) error

	Delete(ctx context.Context, id int) error

	// ExpireStale marks pending invites past their expiry as expired
	// and returns how many rows changed.
	ExpireStale(ctx context.Context) (int64, error)
}

type postgresInviteRepository struct {
	db *sql.DB
}

func NewPostgresInviteRepository(db *sql.DB) InviteRepository {
	return &postgresInviteRepository{db: db}
}

const inviteColumns = `id, team_id, submission_id, email, token, status, expires_at, created_at`

func scanInvite(row interface{ Scan(...interface{}) error }) (*models.TeamInvite, error) {
	var i models.TeamInvite
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.SubmissionID,
		&i.Email,
		&i.Token,
		&i.Status,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *postgresInviteRepository) Create(ctx context.Context, invite *models.TeamInvite) error {
	query := `
		INSERT INTO team_invites (team_id, submission_id, email, token, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		invite.TeamID,
		invite.SubmissionID,
		invite.Email,
		invite.Token,
		invite.Status,
		invite.ExpiresAt,
	).Scan(&invite.ID, &invite.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "team_invites_token_key" {
					return ErrInviteTokenConflict
				}
			case "23503":
				return ErrInviteTeamInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresInviteRepository) GetByID(ctx context.Context, id int) (*models.TeamInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM team_invites WHERE id = $1`

	invite, err := scanInvite(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return invite, nil
}

func (r *postgresInviteRepository) GetByToken(ctx context.Context, token string) (*models.TeamInvite, error) {
	query := `SELECT ` + inviteColumns + ` FROM team_invites WHERE token = $1`

	invite, err := scanInvite(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return invite, nil
}

func (r *postgresInviteRepository) ListPendingByTeamID(ctx context.Context, teamID int) ([]models.TeamInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM team_invites
		WHERE team_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := make([]models.TeamInvite, 0)
	for rows.Next() {
		invite, scanErr := scanInvite(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		invites = append(invites, *invite)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *postgresInviteRepository) MarkAccepted(ctx context.Context, id int) error {
	query := `UPDATE team_invites SET status = 'accepted' WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteNotFound)
}

func (r *postgresInviteRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM team_invites WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteNotFound)
}

func (r *postgresInviteRepository) ExpireStale(ctx context.Context) (int64, error) {
	query := `UPDATE team_invites SET status = 'expired' WHERE status = 'pending' AND expires_at <= NOW()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
