package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/lib/pq"
)

var (
	ErrReactionNotFound = errors.New("reaction not found")
	ErrReactionConflict = errors.New("reaction already recorded")
	ErrReactionInvalid  = errors.New("reaction design request or user invalid")
)

type ReactionRepository interface {
	Add(ctx context.Context, reaction *models.DesignRequestReaction) error
	Remove(ctx context.Context, designRequestID, userID int, emoji string) error
	CountsByRequest(ctx context.Context, designRequestID int) ([]models.ReactionCount, error)
}

type postgresReactionRepository struct {
	db *sql.DB
}

func NewPostgresReactionRepository(db *sql.DB) ReactionRepository {
	return &postgresReactionRepository{db: db}
}

func (r *postgresReactionRepository) Add(ctx context.Context, reaction *models.DesignRequestReaction) error {
	query := `
		INSERT INTO design_request_reactions (design_request_id, user_id, emoji)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		reaction.DesignRequestID,
		reaction.UserID,
		reaction.Emoji,
	).Scan(&reaction.ID, &reaction.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrReactionConflict
			case "23503":
				return ErrReactionInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresReactionRepository) Remove(ctx context.Context, designRequestID, userID int, emoji string) error {
	query := `DELETE FROM design_request_reactions WHERE design_request_id = $1 AND user_id = $2 AND emoji = $3`

	result, err := r.db.ExecContext(ctx, query, designRequestID, userID, emoji)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrReactionNotFound)
}

func (r *postgresReactionRepository) CountsByRequest(ctx context.Context, designRequestID int) ([]models.ReactionCount, error) {
	query := `
		SELECT emoji, COUNT(*)
		FROM design_request_reactions
		WHERE design_request_id = $1
		GROUP BY emoji
		ORDER BY COUNT(*) DESC, emoji`

	rows, err := r.db.QueryContext(ctx, query, designRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]models.ReactionCount, 0)
	for rows.Next() {
		var rc models.ReactionCount
		if scanErr := rows.Scan(&rc.Emoji, &rc.Count); scanErr != nil {
			return nil, scanErr
		}
		counts = append(counts, rc)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
