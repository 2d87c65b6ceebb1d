// http собирает HTTP-роутер accounts-service на chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/OnkarJ/youtube-backend/internal/metrics"
	"github.com/OnkarJ/youtube-backend/internal/service"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/apierrors"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/handlers"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/middleware"
)

// DefaultBasePath - префикс маршрутов учётных записей.
const DefaultBasePath = "/api/v1/users"

// Service - всё, что роутеру нужно от бизнес-логики.
type Service interface {
	handlers.Accounts
	middleware.TokenValidator
}

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // пустой - DefaultBasePath
	Metrics  *metrics.Metrics
	Handlers handlers.Options
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, stager handlers.Stager, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, &service.Error{Kind: service.ErrNotFound, Message: "route not found"})
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":{"code":"method_not_allowed","message":"method not allowed"}}` + "\n"))
	})

	h := handlers.New(svc, stager, opts.Handlers)

	base := opts.BasePath
	if base == "" {
		base = DefaultBasePath
	}

	root.Route(base, func(r chi.Router) {
		registerRoutes(r, h, svc)
	})

	return root
}

// registerRoutes - единая точка регистрации REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.TokenValidator) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh-token", h.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(v))

		r.Post("/logout", h.Logout)
		r.Post("/change-password", h.ChangePassword)
		r.Get("/current-user", h.CurrentUser)
		r.Patch("/update-account", h.UpdateAccount)
		r.Patch("/avatar", h.UpdateAvatar)
		r.Patch("/cover-image", h.UpdateCoverImage)
		r.Get("/{userId}", h.UserByID)
	})
}
