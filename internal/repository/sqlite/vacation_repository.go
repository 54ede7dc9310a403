package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vacations-api/internal/apperror"
	"vacations-api/internal/domain"
	"vacations-api/internal/repository"
)

const vacationColumns = `v.id, v.destination, v.description, v.start_date, v.end_date, v.price, v.image_key, v.created_at, v.updated_at`

// viewColumns expects the viewing user id as its only argument.
const viewColumns = vacationColumns + `,
	(SELECT COUNT(*) FROM followers f WHERE f.vacation_id = v.id) AS followers_count,
	EXISTS (SELECT 1 FROM followers f WHERE f.vacation_id = v.id AND f.user_id = ?) AS is_following`

type VacationRepository struct {
	db *sql.DB
}

func NewVacationRepository(db *sql.DB) repository.VacationRepository {
	return &VacationRepository{db: db}
}

func (r *VacationRepository) Create(ctx context.Context, vacation *domain.Vacation) (int64, error) {
	now := time.Now().UTC()
	vacation.CreatedAt = now
	vacation.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO vacations (destination, description, start_date, end_date, price, image_key, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		vacation.Destination,
		vacation.Description,
		formatDate(vacation.StartDate),
		formatDate(vacation.EndDate),
		vacation.Price,
		vacation.ImageKey,
		vacation.CreatedAt,
		vacation.UpdatedAt,
	)
	if err != nil {
		return 0, apperror.Query("insert vacation", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperror.Query("vacation last insert id", err)
	}
	vacation.ID = id
	return id, nil
}

func (r *VacationRepository) Update(ctx context.Context, vacation *domain.Vacation) error {
	vacation.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE vacations
SET destination=?, description=?, start_date=?, end_date=?, price=?, image_key=?, updated_at=?
WHERE id=?`,
		vacation.Destination,
		vacation.Description,
		formatDate(vacation.StartDate),
		formatDate(vacation.EndDate),
		vacation.Price,
		vacation.ImageKey,
		vacation.UpdatedAt,
		vacation.ID,
	)
	if err != nil {
		return apperror.Query("update vacation", err)
	}
	return expectAffected(res, "vacation not found")
}

func (r *VacationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vacations WHERE id=?`, id)
	if err != nil {
		return apperror.Query("delete vacation", err)
	}
	return expectAffected(res, "vacation not found")
}

func (r *VacationRepository) Get(ctx context.Context, id int64) (*domain.Vacation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+vacationColumns+`
FROM vacations v
WHERE v.id = ?`, id)

	var vacation domain.Vacation
	if err := scanVacation(row, &vacation); err != nil {
		return nil, err
	}
	return &vacation, nil
}

func (r *VacationRepository) GetView(ctx context.Context, userID, id int64) (*domain.VacationView, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+viewColumns+`
FROM vacations v
WHERE v.id = ?`, userID, id)

	var view domain.VacationView
	if err := scanVacation(row, &view.Vacation, &view.FollowersCount, &view.IsFollowing); err != nil {
		return nil, err
	}
	return &view, nil
}

// List returns one page of vacations ordered by start date. Active and
// upcoming are evaluated against the calendar date of asOf.
func (r *VacationRepository) List(ctx context.Context, userID int64, filters domain.VacationFilters, asOf time.Time) (domain.VacationPage, error) {
	var (
		conds    []string
		condArgs []any
	)
	today := formatDate(asOf)
	if filters.FollowedOnly {
		conds = append(conds, `EXISTS (SELECT 1 FROM followers f WHERE f.vacation_id = v.id AND f.user_id = ?)`)
		condArgs = append(condArgs, userID)
	}
	if filters.ActiveOnly {
		conds = append(conds, `v.start_date <= ? AND v.end_date >= ?`)
		condArgs = append(condArgs, today, today)
	}
	if filters.UpcomingOnly {
		conds = append(conds, `v.start_date > ?`)
		condArgs = append(condArgs, today)
	}
	where := ""
	if len(conds) > 0 {
		where = "\nWHERE " + strings.Join(conds, " AND ")
	}

	page := domain.VacationPage{Page: filters.Page, Limit: filters.Limit}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vacations v`+where, condArgs...).Scan(&page.Total); err != nil {
		return domain.VacationPage{}, apperror.Query("count vacations", err)
	}

	args := make([]any, 0, len(condArgs)+3)
	args = append(args, userID)
	args = append(args, condArgs...)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.db.QueryContext(ctx, `
SELECT `+viewColumns+`
FROM vacations v`+where+`
ORDER BY v.start_date ASC, v.id ASC
LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return domain.VacationPage{}, apperror.Query("query vacations", err)
	}
	defer rows.Close()

	page.Items = make([]domain.VacationView, 0, filters.Limit)
	for rows.Next() {
		var view domain.VacationView
		if err := scanVacation(rows, &view.Vacation, &view.FollowersCount, &view.IsFollowing); err != nil {
			return domain.VacationPage{}, err
		}
		page.Items = append(page.Items, view)
	}
	if err := rows.Err(); err != nil {
		return domain.VacationPage{}, apperror.Query("iterate vacations", err)
	}
	return page, nil
}

func (r *VacationRepository) FollowerReport(ctx context.Context) ([]domain.FollowerReportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT v.id, v.destination, COUNT(f.user_id) AS followers_count
FROM vacations v
LEFT JOIN followers f ON f.vacation_id = v.id
GROUP BY v.id, v.destination
ORDER BY followers_count DESC, v.id ASC`)
	if err != nil {
		return nil, apperror.Query("query follower report", err)
	}
	defer rows.Close()

	var report []domain.FollowerReportRow
	for rows.Next() {
		var row domain.FollowerReportRow
		if err := rows.Scan(&row.VacationID, &row.Destination, &row.FollowersCount); err != nil {
			return nil, apperror.Query("scan follower report", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Query("iterate follower report", err)
	}
	return report, nil
}

func scanVacation(row rowScanner, vacation *domain.Vacation, extra ...any) error {
	var start, end string
	dest := []any{
		&vacation.ID,
		&vacation.Destination,
		&vacation.Description,
		&start,
		&end,
		&vacation.Price,
		&vacation.ImageKey,
		&vacation.CreatedAt,
		&vacation.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("vacation not found")
		}
		return apperror.Query("scan vacation", err)
	}

	var err error
	if vacation.StartDate, err = parseDate(start); err != nil {
		return apperror.Query("parse start date", err)
	}
	if vacation.EndDate, err = parseDate(end); err != nil {
		return apperror.Query("parse end date", err)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
