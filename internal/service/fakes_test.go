package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"vacations-api/internal/apperror"
	"vacations-api/internal/domain"
	"vacations-api/internal/storage"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]domain.User{}}
}

func (m *memUsers) Create(_ context.Context, user *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return 0, apperror.Conflict("email already exists", errors.New("UNIQUE constraint failed: users.email"))
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.byID[user.ID] = *user
	return user.ID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return &u, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id int64, update domain.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperror.NotFound("user not found")
	}
	for otherID, other := range m.byID {
		if otherID != id && strings.EqualFold(other.Email, update.Email) {
			return apperror.Conflict("email already exists", nil)
		}
	}
	u.FirstName, u.LastName, u.Email = update.FirstName, update.LastName, update.Email
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperror.NotFound("user not found")
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return nil
}

type memVacations struct {
	nextID    int64
	byID      map[int64]domain.Vacation
	lastAsOf  time.Time
	lastQuery domain.VacationFilters
	updateErr error
	createErr error
}

func newMemVacations() *memVacations {
	return &memVacations{byID: map[int64]domain.Vacation{}}
}

func (m *memVacations) Create(_ context.Context, v *domain.Vacation) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.nextID++
	v.ID = m.nextID
	m.byID[v.ID] = *v
	return v.ID, nil
}

func (m *memVacations) Update(_ context.Context, v *domain.Vacation) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.byID[v.ID]; !ok {
		return apperror.NotFound("vacation not found")
	}
	m.byID[v.ID] = *v
	return nil
}

func (m *memVacations) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return apperror.NotFound("vacation not found")
	}
	delete(m.byID, id)
	return nil
}

func (m *memVacations) Get(_ context.Context, id int64) (*domain.Vacation, error) {
	v, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("vacation not found")
	}
	return &v, nil
}

func (m *memVacations) GetView(ctx context.Context, _ int64, id int64) (*domain.VacationView, error) {
	v, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.VacationView{Vacation: *v}, nil
}

func (m *memVacations) List(_ context.Context, _ int64, f domain.VacationFilters, asOf time.Time) (domain.VacationPage, error) {
	m.lastAsOf = asOf
	m.lastQuery = f
	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	page := domain.VacationPage{Total: len(ids), Page: f.Page, Limit: f.Limit}
	for _, id := range ids {
		page.Items = append(page.Items, domain.VacationView{Vacation: m.byID[id]})
	}
	return page, nil
}

func (m *memVacations) FollowerReport(context.Context) ([]domain.FollowerReportRow, error) {
	return []domain.FollowerReportRow{{VacationID: 1, Destination: "Rome", FollowersCount: 3}}, nil
}

type memFollowers struct {
	pairs map[[2]int64]struct{}
}

func newMemFollowers() *memFollowers {
	return &memFollowers{pairs: map[[2]int64]struct{}{}}
}

func (m *memFollowers) Follow(_ context.Context, userID, vacationID int64) error {
	k := [2]int64{userID, vacationID}
	if _, ok := m.pairs[k]; ok {
		return apperror.Conflict("follower already exists", nil)
	}
	m.pairs[k] = struct{}{}
	return nil
}

func (m *memFollowers) Unfollow(_ context.Context, userID, vacationID int64) error {
	k := [2]int64{userID, vacationID}
	if _, ok := m.pairs[k]; !ok {
		return apperror.NotFound("vacation is not followed")
	}
	delete(m.pairs, k)
	return nil
}

type memStorage struct {
	objects   map[string]string
	puts      []storage.PutOptions
	putErr    error
	deleteErr error
	deleted   []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string]string{}}
}

func (m *memStorage) PutObject(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[opts.Key] = string(b)
	m.puts = append(m.puts, opts)
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (m *memStorage) DeleteObject(_ context.Context, _, key string) error {
	m.deleted = append(m.deleted, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	return nil
}

func (m *memStorage) GetObjectURL(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
	return "https://" + bucket + ".example.com/" + key + "?expires=" + expires.String(), nil
}
