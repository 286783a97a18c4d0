package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	enrollParams := s.config.EnrollParams()
	// Uploaded frames are already user-sampled; striding them again
	// would demand stride*K uploads for one enrollment.
	enrollParams.FrameStride = 1

	enrollHandler := handlers.NewEnrollHandler(s.store, s.neighbors, s.pipeline, enrollParams)
	recognizeHandler := handlers.NewRecognizeHandler(s.controller, s.pipeline)
	punchHandler := handlers.NewPunchHandler(s.controller)
	identitiesHandler := handlers.NewIdentitiesHandler(s.store, s.neighbors)
	attendanceHandler := handlers.NewAttendanceHandler(s.controller)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/enroll", enrollHandler.Enroll)
		r.Post("/recognize", recognizeHandler.Recognize)

		r.Post("/attendance/punch", punchHandler.Punch)
		r.Get("/attendance/today", attendanceHandler.Today)

		r.Get("/identities", identitiesHandler.List)
		r.Get("/identities/{id}", identitiesHandler.Get)
		r.Get("/identities/{id}/similar", identitiesHandler.Similar)
		r.Get("/identities/{id}/status", attendanceHandler.Status)
	})
}
