package http

import (
	"net/http"

	"github.com/auth-api/internal/application/auth"
	"github.com/auth-api/internal/application/otp"
	"github.com/auth-api/internal/application/user"
	"github.com/auth-api/internal/config"
	"github.com/auth-api/internal/domain"
	"github.com/auth-api/internal/transport/http/handler"
	appmiddleware "github.com/auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true, // the refresh cookie rides on auth requests
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to credential and OTP endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(deps.OTPRepo, cfg.OTPTTL)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:        deps.UserRepo,
		TokenRepo:       deps.TokenRepo,
		OTP:             otpSvc,
		Mailer:          deps.Mailer,
		Google:          deps.Google,
		Signer:          deps.JWTProvider,
		Alerts:          deps.Alerts,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	userSvc := user.NewService(deps.UserRepo, deps.AvatarStore)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, cfg)
	accountH := handler.NewAccountHandler(userSvc, authSvc, cfg)
	userH := handler.NewUserHandler(userSvc)

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.UserRepo)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Route("/auth", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/register", authH.Register)
			r.With(sensitiveRL.Limit).Post("/verify-email", authH.VerifyEmail)
			r.With(sensitiveRL.Limit).Post("/resend-otp", authH.ResendOTP)
			r.With(sensitiveRL.Limit).Post("/login", authH.Login)
			r.With(sensitiveRL.Limit).Post("/google", authH.Google)
			r.Post("/refresh", authH.Refresh)
			r.Post("/logout", authH.Logout)
			r.With(sensitiveRL.Limit).Post("/forgot-password", authH.ForgotPassword)
			r.With(sensitiveRL.Limit).Post("/reset-password", authH.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Route("/account", func(r chi.Router) {
				r.Get("/", accountH.Me)
				r.Put("/profile", accountH.UpdateProfile)
				r.Patch("/password", accountH.UpdatePassword)
				r.Post("/avatar", accountH.UploadAvatar)
				r.Delete("/", accountH.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/{id}", userH.GetProfile)

				r.With(appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)).
					Get("/", userH.List)
				r.With(appmiddleware.RequireRole(domain.RoleSuperAdmin)).
					Patch("/role", userH.ChangeRole)
			})
		})
	})

	return r
}
