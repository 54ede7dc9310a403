package repository

import (
	"context"
	"time"

	"vacations-api/internal/domain"
)

// VacationRepository exposes persistence operations for vacations.
// Views are computed for the given user id.
type VacationRepository interface {
	Create(ctx context.Context, vacation *domain.Vacation) (int64, error)
	Update(ctx context.Context, vacation *domain.Vacation) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Vacation, error)
	GetView(ctx context.Context, userID, id int64) (*domain.VacationView, error)
	List(ctx context.Context, userID int64, filters domain.VacationFilters, asOf time.Time) (domain.VacationPage, error)
	FollowerReport(ctx context.Context) ([]domain.FollowerReportRow, error)
}

// FollowerRepository manages which users follow which vacations.
type FollowerRepository interface {
	Follow(ctx context.Context, userID, vacationID int64) error
	Unfollow(ctx context.Context, userID, vacationID int64) error
}
