package sqlite

import (
	"context"
	"database/sql"
	"time"

	"vacations-api/internal/apperror"
	"vacations-api/internal/repository"
)

type FollowerRepository struct {
	db *sql.DB
}

func NewFollowerRepository(db *sql.DB) repository.FollowerRepository {
	return &FollowerRepository{db: db}
}

func (r *FollowerRepository) Follow(ctx context.Context, userID, vacationID int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO followers (user_id, vacation_id, created_at)
VALUES (?, ?, ?)`,
		userID,
		vacationID,
		time.Now().UTC(),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("follower already exists", err)
		case isForeignKeyViolation(err):
			return apperror.NotFound("vacation not found")
		}
		return apperror.Query("insert follower", err)
	}
	return nil
}

func (r *FollowerRepository) Unfollow(ctx context.Context, userID, vacationID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM followers WHERE user_id=? AND vacation_id=?`, userID, vacationID)
	if err != nil {
		return apperror.Query("delete follower", err)
	}
	return expectAffected(res, "vacation is not followed")
}
