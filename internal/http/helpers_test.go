package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"vacations-api/internal/apperror"
	"vacations-api/internal/auth"
	"vacations-api/internal/domain"
	"vacations-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	mu       sync.Mutex
	users    map[int64]domain.User
	password map[int64]string
	getCalls int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]domain.User{}, password: map[int64]string{}}
}

func (f *fakeUsers) add(u domain.User, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	f.password[u.ID] = password
}

func (f *fakeUsers) Register(_ context.Context, in service.RegisterInput) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == in.Email {
			return nil, apperror.Conflict("email already exists", nil)
		}
	}
	u := domain.User{ID: int64(len(f.users) + 1), FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Role: domain.RoleUser}
	f.users[u.ID] = u
	f.password[u.ID] = in.Password
	return &u, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, email, password string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Email == email && f.password[id] == password {
			return &u, nil
		}
	}
	return nil, service.ErrInvalidCredentials
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return &u, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) (*domain.User, error) {
	f.mu.Lock()
	u, ok := f.users[id]
	if ok {
		u.FirstName, u.LastName, u.Email = update.FirstName, update.LastName, update.Email
		f.users[id] = u
	}
	f.mu.Unlock()
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) ChangePassword(_ context.Context, id int64, current, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.password[id] != current {
		return service.ErrWrongPassword
	}
	f.password[id] = next
	return nil
}

func (f *fakeUsers) EnsureAdmin(context.Context, service.RegisterInput) (*domain.User, bool, error) {
	return nil, false, nil
}

type updateCall struct {
	id    int64
	in    domain.VacationInput
	image *service.ImageUpload
	body  string
}

type fakeVacations struct {
	listFn      func(domain.VacationFilters) (domain.VacationPage, error)
	lastFilters domain.VacationFilters
	created     []domain.VacationInput
	createdBody []string
	updates     []updateCall
	follows     [][2]int64
	deleteWarn  []string
	report      []domain.FollowerReportRow
}

func (f *fakeVacations) List(_ context.Context, _ int64, filters domain.VacationFilters) (domain.VacationPage, error) {
	f.lastFilters = filters
	if f.listFn != nil {
		return f.listFn(filters)
	}
	return domain.VacationPage{Page: 1, Limit: 10}, nil
}

func (f *fakeVacations) Get(_ context.Context, userID, id int64) (*domain.VacationView, error) {
	if id == 404 {
		return nil, apperror.NotFound("vacation not found")
	}
	return &domain.VacationView{
		Vacation: domain.Vacation{
			ID:          id,
			Destination: "Rome",
			Description: "Pasta",
			StartDate:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, 7, 8, 0, 0, 0, 0, time.UTC),
			Price:       999.5,
			ImageKey:    "vacation-images/rome.jpg",
		},
		FollowersCount: 4,
		IsFollowing:    userID == 2,
	}, nil
}

func (f *fakeVacations) Create(_ context.Context, in domain.VacationInput, image service.ImageUpload) (*domain.Vacation, error) {
	body, _ := io.ReadAll(image.Body)
	f.created = append(f.created, in)
	f.createdBody = append(f.createdBody, string(body))
	return &domain.Vacation{ID: 7, Destination: in.Destination, Description: in.Description, StartDate: in.StartDate, EndDate: in.EndDate, Price: in.Price, ImageKey: "vacation-images/x.jpg"}, nil
}

func (f *fakeVacations) Update(_ context.Context, id int64, in domain.VacationInput, image *service.ImageUpload) (*domain.Vacation, error) {
	call := updateCall{id: id, in: in, image: image}
	if image != nil {
		b, _ := io.ReadAll(image.Body)
		call.body = string(b)
	}
	f.updates = append(f.updates, call)
	return &domain.Vacation{ID: id}, nil
}

func (f *fakeVacations) Delete(_ context.Context, id int64) ([]string, error) {
	if id == 404 {
		return nil, apperror.NotFound("vacation not found")
	}
	return f.deleteWarn, nil
}

func (f *fakeVacations) Follow(_ context.Context, userID, vacationID int64) error {
	for _, p := range f.follows {
		if p == [2]int64{userID, vacationID} {
			return apperror.Conflict("follower already exists", nil)
		}
	}
	f.follows = append(f.follows, [2]int64{userID, vacationID})
	return nil
}

func (f *fakeVacations) Unfollow(_ context.Context, userID, vacationID int64) error {
	for i, p := range f.follows {
		if p == [2]int64{userID, vacationID} {
			f.follows = append(f.follows[:i], f.follows[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("vacation is not followed")
}

func (f *fakeVacations) FollowerReport(context.Context) ([]domain.FollowerReportRow, error) {
	return f.report, nil
}

func (f *fakeVacations) ImageURL(_ context.Context, id int64) (string, error) {
	if id == 404 {
		return "", apperror.NotFound("vacation not found")
	}
	return "https://bucket.example.com/vacation-images/rome.jpg?X-Amz-Signature=abc", nil
}

type testServer struct {
	engine    *gin.Engine
	tokens    *auth.TokenService
	users     *fakeUsers
	vacations *fakeVacations
	logs      *test.Hook
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts.Logger = logger

	s := &testServer{
		engine:    gin.New(),
		tokens:    tokens,
		users:     newFakeUsers(),
		vacations: &fakeVacations{},
		logs:      hook,
	}
	s.users.add(domain.User{ID: 1, FirstName: "Ada", LastName: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin}, "admin-pass")
	s.users.add(domain.User{ID: 2, FirstName: "Uri", LastName: "User", Email: "user@example.com", Role: domain.RoleUser}, "user-pass")

	NewHandler(s.users, s.vacations, tokens, auth.NewBearerAuthorizer(tokens), opts).RegisterRoutes(s.engine)
	return s
}

func (s *testServer) token(t *testing.T, id int64, role domain.Role) string {
	t.Helper()
	tok, err := s.tokens.Issue(auth.Principal{UserID: id, Role: role})
	require.NoError(t, err)
	return tok
}

func (s *testServer) adminToken(t *testing.T) string { return s.token(t, 1, domain.RoleAdmin) }
func (s *testServer) userToken(t *testing.T) string  { return s.token(t, 2, domain.RoleUser) }

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a vacation form; an empty filename omits the image part.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = io.Copy(part, strings.NewReader(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
