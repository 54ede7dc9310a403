package http

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"vacations-api/internal/auth"
	"vacations-api/internal/domain"
	"vacations-api/internal/service"
)

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, error)
}

// Options tunes the HTTP layer.
type Options struct {
	Logger  logrus.FieldLogger
	Metrics *Metrics
	// MaxUploadBytes caps a single vacation image.
	MaxUploadBytes int64
	// AuthPerMinute limits login and register calls per client ip; 0 disables it.
	AuthPerMinute int
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	vacations service.VacationService
	tokens    TokenIssuer
	authn     auth.Authorizer
	logger    logrus.FieldLogger
	metrics   *Metrics
	maxUpload int64
	limiter   *ipRateLimiter
}

func NewHandler(users service.UserService, vacations service.VacationService, tokens TokenIssuer, authn auth.Authorizer, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	return &Handler{
		users:     users,
		vacations: vacations,
		tokens:    tokens,
		authn:     authn,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		maxUpload: opts.MaxUploadBytes,
		limiter:   newIPRateLimiter(opts.AuthPerMinute),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	useJSONFieldNames()

	router.Use(requestLogger(h.logger))
	if h.metrics != nil {
		router.Use(h.metrics.middleware())
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	router.Use(errorHandler(h.logger), recovery(), corsMiddleware())

	// multipart overhead on top of the image itself
	formLimit := limitBody(h.maxUpload + 1<<20)

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		public := api.Group("/auth", h.limiter.middleware())
		public.POST("/register", h.register)
		public.POST("/login", h.login)

		authed := api.Group("", authorize(h.authn))
		authed.GET("/users/me", h.me)
		authed.PUT("/users/me", h.updateMe)
		authed.PUT("/users/me/password", h.changePassword)
		authed.GET("/vacations", h.listVacations)
		authed.GET("/vacations/:id", h.getVacation)
		authed.GET("/vacations/:id/image", h.vacationImage)

		users := authed.Group("", authorize(auth.RequireRole(domain.RoleUser)))
		users.POST("/vacations/:id/follow", h.follow)
		users.DELETE("/vacations/:id/follow", h.unfollow)

		admin := authed.Group("", authorize(auth.RequireRole(domain.RoleAdmin)))
		admin.POST("/vacations", formLimit, h.createVacation)
		admin.PUT("/vacations/:id", formLimit, h.updateVacation)
		admin.DELETE("/vacations/:id", h.deleteVacation)
		admin.GET("/admin/reports/followers", h.followerReport)
		admin.GET("/admin/reports/followers.csv", h.followerReportCSV)
	}
}

var fieldNamesOnce sync.Once

// useJSONFieldNames makes validation errors report request field names
// instead of Go struct field names.
func useJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}
