package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/lib/pq"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipConflict = errors.New("user is already a member of the team")
	ErrMembershipInvalid  = errors.New("membership team or user invalid")
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.TeamMembership) error
	GetByID(ctx context.Context, id int) (*models.TeamMembership, error)
	GetByTeamAndUser(ctx context.Context, teamID, userID int) (*models.TeamMembership, error)
	ListByTeamID(ctx context.Context, teamID int) ([]models.TeamMembership, error)
	UpdateRole(ctx context.Context, id int, role models.TeamRole, institutionRole *models.InstitutionRole) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

type postgresMembershipRepository struct {
	db *sql.DB
}

func NewPostgresMembershipRepository(db *sql.DB) MembershipRepository {
	return &postgresMembershipRepository{db: db}
}

const membershipColumns = `id, team_id, user_id, role, institution_role, created_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (*models.TeamMembership, error) {
	var m models.TeamMembership
	err := row.Scan(
		&m.ID,
		&m.TeamID,
		&m.UserID,
		&m.Role,
		&m.InstitutionRole,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *postgresMembershipRepository) Create(ctx context.Context, membership *models.TeamMembership) error {
	query := `
		INSERT INTO team_memberships (team_id, user_id, role, institution_role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		membership.TeamID,
		membership.UserID,
		membership.Role,
		membership.InstitutionRole,
	).Scan(&membership.ID, &membership.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "team_memberships_team_id_user_id_key" {
					return ErrMembershipConflict
				}
			case "23503":
				return ErrMembershipInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresMembershipRepository) GetByID(ctx context.Context, id int) (*models.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships WHERE id = $1`

	membership, err := scanMembership(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return membership, nil
}

func (r *postgresMembershipRepository) GetByTeamAndUser(ctx context.Context, teamID, userID int) (*models.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships WHERE team_id = $1 AND user_id = $2`

	membership, err := scanMembership(r.db.QueryRowContext(ctx, query, teamID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return membership, nil
}

func (r *postgresMembershipRepository) ListByTeamID(ctx context.Context, teamID int) ([]models.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships WHERE team_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := make([]models.TeamMembership, 0)
	for rows.Next() {
		membership, scanErr := scanMembership(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		memberships = append(memberships, *membership)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *postgresMembershipRepository) UpdateRole(ctx context.Context, id int, role models.TeamRole, institutionRole *models.InstitutionRole) error {
	query := `UPDATE team_memberships SET role = $1, institution_role = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, role, institutionRole, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMembershipNotFound)
}

func (r *postgresMembershipRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM team_memberships WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMembershipNotFound)
}

func (r *postgresMembershipRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_memberships`).Scan(&count)
	return count, err
}
