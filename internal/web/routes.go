package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(deps Dependencies) {
	recognizeHandler := handlers.NewRecognizeHandler(deps.Engine, deps.Encoder, deps.Ledger)
	studentsHandler := handlers.NewStudentsHandler(deps.Engine, deps.Encoder, deps.Registry)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Ledger)
	authHandler := handlers.NewAuthHandler(deps.Faculty, s.sessionManager)
	deviceHandler := handlers.NewDeviceHandler()
	buzzerHandler := handlers.NewBuzzerHandler(deps.Buzzer)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Device endpoints polled by the ESP32 firmware. The device sits on
	// a trusted LAN; it carries no session.
	s.router.Get("/device_mode", deviceHandler.Mode)
	s.router.Get("/set_mode/{mode}", deviceHandler.SetMode)
	s.router.Post("/api/v1/recognize", recognizeHandler.Recognize)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)
		r.Post("/auth/reset", authHandler.ResetPassword)

		// Administration requires a faculty session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			r.Post("/register", studentsHandler.Register)
			r.Get("/students", studentsHandler.List)
			r.Delete("/students/{id}", studentsHandler.Delete)

			r.Get("/attendance", attendanceHandler.Records)
			r.Get("/attendance/summary", attendanceHandler.Summary)
			r.Get("/attendance/date", attendanceHandler.ActiveDate)
			r.Post("/attendance/date", attendanceHandler.SetDate)

			r.Post("/trigger-buzzer", buzzerHandler.Trigger)
		})
	})
}
