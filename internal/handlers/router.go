package handlers

import (
	"net/http"
	"time"

	"careTracker/internal/middleware"
	"careTracker/internal/models/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Task         TaskHandler
	Account      AccountHandler
	Checklist    ChecklistHandler
	Template     TemplateHandler
	Notification NotificationHandler
	Export       ExportHandler
}

type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimitRPM   int
	CORSOrigins    []string
}

func NewRouter(h Handlers, tokens middleware.TokenValidator, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
			MaxAge:         300,
		}))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.RateLimit(cfg.RateLimitRPM))

	r.Get("/health", h.Task.HealthCheck)   // GET /health
	r.Post("/auth/login", h.Account.Login) // POST /auth/login

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(tokens))

		r.Get("/me", h.Account.Me) // GET /me

		r.Route("/users", func(r chi.Router) {
			// смену пароля права проверяет сервис
			r.Put("/{id}/password", h.Account.ChangePassword) // PUT /users/{id}/password

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(user.RoleAdmin, user.RoleProvider))

				r.Get("/", h.Account.ListUsers)         // GET /users
				r.Post("/", h.Account.CreateUser)       // POST /users
				r.Delete("/{id}", h.Account.DeleteUser) // DELETE /users/{id}
			})
		})

		r.Route("/patients/{id}", func(r chi.Router) {
			r.Get("/export", h.Export.Export) // GET /patients/{id}/export

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(user.RoleAdmin, user.RoleProvider))

				r.Put("/caregiver", h.Account.AssignCaregiver) // PUT /patients/{id}/caregiver
				r.Post("/tasks", h.Task.AssignTask)            // POST /patients/{id}/tasks
				r.Post("/tasks/bulk", h.Task.BulkAssign)       // POST /patients/{id}/tasks/bulk
				r.Get("/tasks", h.Task.PatientTasks)           // GET /patients/{id}/tasks
				r.Delete("/tasks", h.Task.DeletePatientTasks)  // DELETE /patients/{id}/tasks
				r.Delete("/checklist", h.Checklist.Reset)      // DELETE /patients/{id}/checklist
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.Task.ListTasks) // GET /tasks

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(user.RoleAdmin, user.RoleProvider))

				r.Get("/statistics", h.Task.Statistics)           // GET /tasks/statistics
				r.Post("/clear-completed", h.Task.ClearCompleted) // POST /tasks/clear-completed
				r.Post("/clear-all", h.Task.ClearAll)             // POST /tasks/clear-all
				r.Post("/reset-responses", h.Task.ResetResponses) // POST /tasks/reset-responses
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Task.GetTaskByID)        // GET /tasks/{id}
				r.Delete("/", h.Task.DeleteTaskByID)  // DELETE /tasks/{id}
				r.Get("/take", h.Task.TakeTask)       // GET /tasks/{id}/take
				r.Post("/submit", h.Task.SubmitTask)  // POST /tasks/{id}/submit
				r.Get("/results", h.Task.TaskResults) // GET /tasks/{id}/results
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.Template.List) // GET /templates
			r.With(middleware.RequireRole(user.RoleAdmin, user.RoleProvider)).
				Post("/", h.Template.Create) // POST /templates
		})

		r.Get("/notifications", h.Notification.List)                // GET /notifications
		r.Post("/notifications/{id}/read", h.Notification.MarkRead) // POST /notifications/{id}/read

		r.Route("/checklist", func(r chi.Router) {
			r.Get("/today", h.Checklist.Today)     // GET /checklist/today
			r.Post("/", h.Checklist.Submit)        // POST /checklist
			r.Get("/results", h.Checklist.Results) // GET /checklist/results?patient_id=
		})
	})

	return r
}
