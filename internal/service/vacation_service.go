package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vacations-api/internal/apperror"
	"vacations-api/internal/domain"
	"vacations-api/internal/repository"
	"vacations-api/internal/storage"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
	MaxPrice         = 10000
	MaxPage          = 100000
)

var allowedImageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
}

// ImageUpload is an image file received with a vacation form.
type ImageUpload struct {
	Body        io.Reader
	Filename    string
	ContentType string
}

// VacationService coordinates vacation level operations backed by repositories and image storage.
type VacationService interface {
	List(ctx context.Context, userID int64, filters domain.VacationFilters) (domain.VacationPage, error)
	Get(ctx context.Context, userID, id int64) (*domain.VacationView, error)
	Create(ctx context.Context, in domain.VacationInput, image ImageUpload) (*domain.Vacation, error)
	Update(ctx context.Context, id int64, in domain.VacationInput, image *ImageUpload) (*domain.Vacation, error)
	Delete(ctx context.Context, id int64) ([]string, error)
	Follow(ctx context.Context, userID, vacationID int64) error
	Unfollow(ctx context.Context, userID, vacationID int64) error
	FollowerReport(ctx context.Context) ([]domain.FollowerReportRow, error)
	ImageURL(ctx context.Context, id int64) (string, error)
}

type VacationConfig struct {
	Bucket    string
	KeyPrefix string
	URLTTL    time.Duration
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

type vacationService struct {
	cfg       VacationConfig
	vacations repository.VacationRepository
	followers repository.FollowerRepository
	storage   storage.Service
}

func NewVacationService(cfg VacationConfig, vacations repository.VacationRepository, followers repository.FollowerRepository, store storage.Service) VacationService {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &vacationService{
		cfg:       cfg,
		vacations: vacations,
		followers: followers,
		storage:   store,
	}
}

func (s *vacationService) List(ctx context.Context, userID int64, filters domain.VacationFilters) (domain.VacationPage, error) {
	filters, err := normalizeFilters(filters)
	if err != nil {
		return domain.VacationPage{}, err
	}
	return s.vacations.List(ctx, userID, filters, s.cfg.Now())
}

func (s *vacationService) Get(ctx context.Context, userID, id int64) (*domain.VacationView, error) {
	return s.vacations.GetView(ctx, userID, id)
}

func (s *vacationService) Create(ctx context.Context, in domain.VacationInput, image ImageUpload) (*domain.Vacation, error) {
	if err := s.validateInput(in, true); err != nil {
		return nil, err
	}

	key, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	vacation := &domain.Vacation{
		Destination: strings.TrimSpace(in.Destination),
		Description: strings.TrimSpace(in.Description),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Price:       in.Price,
		ImageKey:    key,
	}
	if _, err := s.vacations.Create(ctx, vacation); err != nil {
		s.removeImage(ctx, key)
		return nil, err
	}
	return vacation, nil
}

func (s *vacationService) Update(ctx context.Context, id int64, in domain.VacationInput, image *ImageUpload) (*domain.Vacation, error) {
	if err := s.validateInput(in, false); err != nil {
		return nil, err
	}

	vacation, err := s.vacations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldKey := vacation.ImageKey
	if image != nil {
		key, err := s.uploadImage(ctx, *image)
		if err != nil {
			return nil, err
		}
		vacation.ImageKey = key
	}

	vacation.Destination = strings.TrimSpace(in.Destination)
	vacation.Description = strings.TrimSpace(in.Description)
	vacation.StartDate = in.StartDate
	vacation.EndDate = in.EndDate
	vacation.Price = in.Price

	if err := s.vacations.Update(ctx, vacation); err != nil {
		if image != nil {
			s.removeImage(ctx, vacation.ImageKey)
		}
		return nil, err
	}
	if image != nil {
		s.removeImage(ctx, oldKey)
	}
	return vacation, nil
}

// Delete removes the vacation and its image. Image cleanup failures are
// returned as warnings since the vacation itself is already gone.
func (s *vacationService) Delete(ctx context.Context, id int64) ([]string, error) {
	vacation, err := s.vacations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.vacations.Delete(ctx, id); err != nil {
		return nil, err
	}

	var warnings []string
	if vacation.ImageKey != "" {
		if err := s.storage.DeleteObject(ctx, s.cfg.Bucket, vacation.ImageKey); err != nil {
			s.cfg.Logger.WithError(err).WithField("vacation_id", id).Warn("delete vacation image")
			warnings = append(warnings, fmt.Sprintf("delete image: %v", err))
		}
	}
	return warnings, nil
}

func (s *vacationService) Follow(ctx context.Context, userID, vacationID int64) error {
	return s.followers.Follow(ctx, userID, vacationID)
}

func (s *vacationService) Unfollow(ctx context.Context, userID, vacationID int64) error {
	return s.followers.Unfollow(ctx, userID, vacationID)
}

func (s *vacationService) FollowerReport(ctx context.Context) ([]domain.FollowerReportRow, error) {
	return s.vacations.FollowerReport(ctx)
}

func (s *vacationService) ImageURL(ctx context.Context, id int64) (string, error) {
	vacation, err := s.vacations.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if vacation.ImageKey == "" {
		return "", apperror.NotFound("vacation has no image")
	}
	url, err := s.storage.GetObjectURL(ctx, s.cfg.Bucket, vacation.ImageKey, s.cfg.URLTTL)
	if err != nil {
		return "", fmt.Errorf("image url: %w", err)
	}
	return url, nil
}

func (s *vacationService) validateInput(in domain.VacationInput, creating bool) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Destination) == "" {
		fields["destination"] = "is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "is required"
	}
	if in.Price <= 0 || in.Price > MaxPrice {
		fields["price"] = fmt.Sprintf("must be greater than 0 and at most %d", MaxPrice)
	}
	if in.StartDate.IsZero() {
		fields["startDate"] = "is required"
	}
	if in.EndDate.IsZero() {
		fields["endDate"] = "is required"
	} else if in.EndDate.Before(in.StartDate) {
		fields["endDate"] = "must not be before startDate"
	}
	if creating && !in.StartDate.IsZero() {
		today := truncateToDate(s.cfg.Now())
		if truncateToDate(in.StartDate).Before(today) {
			fields["startDate"] = "must not be in the past"
		}
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid data", fields)
	}
	return nil
}

func (s *vacationService) uploadImage(ctx context.Context, image ImageUpload) (string, error) {
	if image.Body == nil {
		return "", apperror.Upload("image is required", nil)
	}
	ext := strings.ToLower(filepath.Ext(image.Filename))
	if _, ok := allowedImageExts[ext]; !ok {
		return "", apperror.Upload(fmt.Sprintf("unsupported image type %q", ext), nil)
	}
	contentType := image.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(ext)
	}

	key := path.Join(strings.Trim(s.cfg.KeyPrefix, "/"), uuid.NewString()+ext)
	if _, err := s.storage.PutObject(ctx, image.Body, storage.PutOptions{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		ContentType: contentType,
	}); err != nil {
		return "", apperror.Upload("store image", err)
	}
	return key, nil
}

func (s *vacationService) removeImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.DeleteObject(ctx, s.cfg.Bucket, key); err != nil {
		s.cfg.Logger.WithError(err).WithField("key", key).Warn("remove vacation image")
	}
}

func normalizeFilters(f domain.VacationFilters) (domain.VacationFilters, error) {
	if f.ActiveOnly && f.UpcomingOnly {
		return f, apperror.InvalidField("active", "cannot be combined with upcoming")
	}
	if f.Page > MaxPage {
		return f, apperror.InvalidField("page", fmt.Sprintf("must be at most %d", MaxPage))
	}
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultPageLimit
	case f.Limit > MaxPageLimit:
		f.Limit = MaxPageLimit
	}
	return f, nil
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
