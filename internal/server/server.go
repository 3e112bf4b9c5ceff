// Пакет server — HTTP-сервер User Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sprintap/user-module/internal/api/handlers"
	"github.com/sprintap/user-module/internal/api/middleware"
	"github.com/sprintap/user-module/internal/config"
)

// Server — HTTP-сервер User Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую, без API Gateway;
	// token endpoint аутентифицируется передаваемыми учётными данными.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth, "/health/", "/metrics", "/api/v1/auth/token"))
	}

	registerRoutes(router, cfg, handler, jwtAuth != nil)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// registerRoutes регистрирует все маршруты API.
// Мутирующие endpoints требуют роль администратора; чтение доступно
// и наблюдателю. При выключенной аутентификации роли не проверяются.
func registerRoutes(router chi.Router, cfg *config.Config, h *handlers.APIHandler, withAuth bool) {
	admin := func(next http.Handler) http.Handler { return next }
	viewer := func(next http.Handler) http.Handler { return next }
	if withAuth {
		admin = middleware.RequireRole(cfg.AdminRole)
		viewer = middleware.RequireRole(cfg.AdminRole, cfg.ViewerRole)
	}

	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", h.IssueToken)

		r.Route("/roles", func(r chi.Router) {
			r.With(admin).Post("/", h.CreateRole)
			r.With(viewer).Get("/", h.ListRoles)
			r.With(viewer).Get("/privileges", h.ListPrivileges)
			r.With(admin).Put("/{roleId}", h.UpdateRole)
			r.With(admin).Delete("/{roleId}", h.DeleteRole)
			r.With(viewer).Get("/{roleId}/privileges", h.RolePrivileges)
		})

		r.Route("/groups", func(r chi.Router) {
			r.With(admin).Post("/", h.CreateGroup)
			r.With(viewer).Get("/", h.ListGroups)
			r.With(admin).Delete("/{groupId}", h.DeleteGroup)
			r.With(viewer).Get("/{groupId}/roles-privileges", h.GroupRolesPrivileges)
			r.With(viewer).Get("/{groupId}/users", h.GroupUsers)
			r.With(admin).Put("/{groupId}/users", h.UpdateGroupUsers)
			r.With(admin).Put("/{groupId}/roles-privileges", h.UpdateGroupRolesPrivileges)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(admin).Post("/", h.CreateUser)
			r.With(viewer).Get("/", h.ListUsers)
			r.With(viewer).Get("/{userId}", h.GetUser)
			r.With(admin).Put("/{userId}", h.UpdateUser)
			r.With(admin).Delete("/{userId}", h.DeleteUser)
		})

		r.Route("/doa-rules", func(r chi.Router) {
			r.With(admin).Post("/", h.CreateDoaRule)
			r.With(viewer).Get("/", h.ListDoaRules)
			r.With(viewer).Get("/{id}", h.GetDoaRule)
			r.With(admin).Put("/{id}", h.UpdateDoaRule)
			r.With(admin).Delete("/{id}", h.DeleteDoaRule)
			r.With(admin).Patch("/{id}/status", h.SetDoaRuleStatus)
		})
	})
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Проверяем, начинается ли путь с исключённого префикса
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Применяем JWT middleware
			jwtMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
