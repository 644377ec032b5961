package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/cbaird/gatehouse/internal/auth"
	"github.com/cbaird/gatehouse/internal/handlers"
	"github.com/cbaird/gatehouse/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	usersHandler *handlers.UsersHandler,
	tokenManager *auth.TokenManager,
) {
	loginLimit := middleware.RateLimitByIP(middleware.DefaultLoginRateLimit())
	emailLimit := middleware.RateLimitByIP(middleware.DefaultEmailRateLimit())

	// Public routes. Everything that dispatches email sits behind the
	// tighter limit; verify-email is a signed link and needs neither
	// authentication nor throttling.
	router.With(emailLimit).Post("/auth/register", authHandler.Register)
	router.With(loginLimit).Post("/auth/login", authHandler.Login)
	router.Get("/auth/verify-email/{token}", authHandler.VerifyEmail)
	router.With(emailLimit).Post("/auth/resend-verification", authHandler.ResendVerification)
	router.With(loginLimit).Post("/auth/refresh", authHandler.RefreshToken)

	// Protected routes - bearer access token required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/users/me", usersHandler.Me)
		r.Post("/users/me/password", usersHandler.ChangePassword)
		r.Post("/users/me/delete", usersHandler.DeleteAccount)
		r.Get("/users/me/activity", usersHandler.Activity)
		r.Get("/users/me/settings", usersHandler.GetSettings)
		r.Patch("/users/me/settings", usersHandler.UpdateSettings)
		r.Get("/users/me/sessions", usersHandler.ListSessions)
		r.Delete("/users/me/sessions/{key}", usersHandler.EndSession)
	})
}
