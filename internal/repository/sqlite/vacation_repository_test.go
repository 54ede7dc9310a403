package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacations-api/internal/apperror"
	"vacations-api/internal/domain"
)

var listAsOf = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	db        *sql.DB
	users     *UserRepository
	vacations *VacationRepository
	followers *FollowerRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := newTestDB(t)
	return fixture{
		db:        db,
		users:     NewUserRepository(db).(*UserRepository),
		vacations: NewVacationRepository(db).(*VacationRepository),
		followers: NewFollowerRepository(db).(*FollowerRepository),
	}
}

func (f fixture) addVacation(t *testing.T, destination, start, end string) *domain.Vacation {
	t.Helper()
	v := &domain.Vacation{
		Destination: destination,
		Description: "A trip to " + destination,
		StartDate:   date(start),
		EndDate:     date(end),
		Price:       1200.5,
		ImageKey:    "vacation-images/" + destination + ".jpg",
	}
	_, err := f.vacations.Create(context.Background(), v)
	require.NoError(t, err)
	return v
}

func destinations(page domain.VacationPage) []string {
	out := make([]string, len(page.Items))
	for i := range page.Items {
		out[i] = page.Items[i].Destination
	}
	return out
}

func TestVacationRepository_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	v := f.addVacation(t, "Rome", "2026-07-01", "2026-07-10")
	require.NotZero(t, v.ID)

	got, err := f.vacations.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rome", got.Destination)
	assert.True(t, got.StartDate.Equal(date("2026-07-01")))
	assert.True(t, got.EndDate.Equal(date("2026-07-10")))
	assert.InDelta(t, 1200.5, got.Price, 0.001)
	assert.Equal(t, "vacation-images/Rome.jpg", got.ImageKey)

	got.Destination = "Florence"
	got.Price = 999
	require.NoError(t, f.vacations.Update(ctx, got))

	updated, err := f.vacations.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Florence", updated.Destination)
	assert.InDelta(t, 999, updated.Price, 0.001)

	require.NoError(t, f.vacations.Delete(ctx, v.ID))
	_, err = f.vacations.Get(ctx, v.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = f.vacations.Delete(ctx, v.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = f.vacations.Update(ctx, got)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestVacationRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := createUser(t, f.users, "dana@example.com", domain.RoleUser)
	other := createUser(t, f.users, "omer@example.com", domain.RoleUser)

	f.addVacation(t, "Athens", "2026-01-01", "2026-01-07")
	active := f.addVacation(t, "Paris", "2026-06-10", "2026-06-20")
	f.addVacation(t, "Berlin", "2026-06-15", "2026-06-15")
	upcoming := f.addVacation(t, "Tokyo", "2026-08-01", "2026-08-14")

	require.NoError(t, f.followers.Follow(ctx, user.ID, active.ID))
	require.NoError(t, f.followers.Follow(ctx, user.ID, upcoming.ID))
	require.NoError(t, f.followers.Follow(ctx, other.ID, upcoming.ID))

	tests := []struct {
		name    string
		filters domain.VacationFilters
		want    []string
		total   int
	}{
		{"all", domain.VacationFilters{Page: 1, Limit: 10}, []string{"Athens", "Paris", "Berlin", "Tokyo"}, 4},
		{"followed", domain.VacationFilters{FollowedOnly: true, Page: 1, Limit: 10}, []string{"Paris", "Tokyo"}, 2},
		{"active", domain.VacationFilters{ActiveOnly: true, Page: 1, Limit: 10}, []string{"Paris", "Berlin"}, 2},
		{"upcoming", domain.VacationFilters{UpcomingOnly: true, Page: 1, Limit: 10}, []string{"Tokyo"}, 1},
		{"followed and active", domain.VacationFilters{FollowedOnly: true, ActiveOnly: true, Page: 1, Limit: 10}, []string{"Paris"}, 1},
		{"first page", domain.VacationFilters{Page: 1, Limit: 2}, []string{"Athens", "Paris"}, 4},
		{"second page", domain.VacationFilters{Page: 2, Limit: 2}, []string{"Berlin", "Tokyo"}, 4},
		{"past the end", domain.VacationFilters{Page: 3, Limit: 2}, []string{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.vacations.List(ctx, user.ID, tt.filters, listAsOf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, destinations(page))
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.filters.Page, page.Page)
			assert.Equal(t, tt.filters.Limit, page.Limit)
		})
	}
}

func TestVacationRepository_ViewCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := createUser(t, f.users, "dana@example.com", domain.RoleUser)
	other := createUser(t, f.users, "omer@example.com", domain.RoleUser)
	v := f.addVacation(t, "Lisbon", "2026-09-01", "2026-09-05")

	require.NoError(t, f.followers.Follow(ctx, other.ID, v.ID))

	view, err := f.vacations.GetView(ctx, user.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.FollowersCount)
	assert.False(t, view.IsFollowing)

	require.NoError(t, f.followers.Follow(ctx, user.ID, v.ID))
	view, err = f.vacations.GetView(ctx, user.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.FollowersCount)
	assert.True(t, view.IsFollowing)

	_, err = f.vacations.GetView(ctx, user.ID, v.ID+100)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestFollowerRepository_EdgeCases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := createUser(t, f.users, "dana@example.com", domain.RoleUser)
	v := f.addVacation(t, "Oslo", "2026-12-01", "2026-12-05")

	require.NoError(t, f.followers.Follow(ctx, user.ID, v.ID))

	err := f.followers.Follow(ctx, user.ID, v.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)

	err = f.followers.Follow(ctx, user.ID, v.ID+50)
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)

	require.NoError(t, f.followers.Unfollow(ctx, user.ID, v.ID))
	err = f.followers.Unfollow(ctx, user.ID, v.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestVacationRepository_DeleteCascadesFollowers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := createUser(t, f.users, "dana@example.com", domain.RoleUser)
	v := f.addVacation(t, "Cairo", "2026-10-01", "2026-10-05")
	require.NoError(t, f.followers.Follow(ctx, user.ID, v.ID))

	require.NoError(t, f.vacations.Delete(ctx, v.ID))

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM followers`).Scan(&n))
	assert.Zero(t, n)
}

func TestVacationRepository_FollowerReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := createUser(t, f.users, "a@example.com", domain.RoleUser)
	b := createUser(t, f.users, "b@example.com", domain.RoleUser)
	rome := f.addVacation(t, "Rome", "2026-07-01", "2026-07-10")
	nyc := f.addVacation(t, "New York", "2026-07-01", "2026-07-10")
	f.addVacation(t, "Quiet", "2026-07-01", "2026-07-10")

	require.NoError(t, f.followers.Follow(ctx, a.ID, nyc.ID))
	require.NoError(t, f.followers.Follow(ctx, b.ID, nyc.ID))
	require.NoError(t, f.followers.Follow(ctx, a.ID, rome.ID))

	report, err := f.vacations.FollowerReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 3)
	assert.Equal(t, domain.FollowerReportRow{VacationID: nyc.ID, Destination: "New York", FollowersCount: 2}, report[0])
	assert.Equal(t, domain.FollowerReportRow{VacationID: rome.ID, Destination: "Rome", FollowersCount: 1}, report[1])
	assert.Equal(t, 0, report[2].FollowersCount)
}

func TestVacationRepository_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("no such table: vacations"))
	mock.ExpectQuery("SELECT (.+) FROM vacations v").
		WillReturnRows(sqlmock.NewRows([]string{"id", "destination", "description", "start_date", "end_date", "price", "image_key", "created_at", "updated_at"}).
			AddRow(int64(1), "Rome", "d", "not-a-date", "2026-07-10", 10.0, "", time.Now(), time.Now()))

	repo := NewVacationRepository(db)
	ctx := context.Background()

	_, err = repo.List(ctx, 1, domain.VacationFilters{Page: 1, Limit: 10}, listAsOf)
	assert.True(t, apperror.Is(err, apperror.KindQuery))

	_, err = repo.Get(ctx, 1)
	assert.True(t, apperror.Is(err, apperror.KindQuery))

	assert.NoError(t, mock.ExpectationsWereMet())
}
