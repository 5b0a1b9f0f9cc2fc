package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-sis/meridian-sis/internal/attendance"
	"github.com/meridian-sis/meridian-sis/internal/auth"
	"github.com/meridian-sis/meridian-sis/internal/employees"
	"github.com/meridian-sis/meridian-sis/internal/exams"
	"github.com/meridian-sis/meridian-sis/internal/fees"
	"github.com/meridian-sis/meridian-sis/internal/menu"
	"github.com/meridian-sis/meridian-sis/internal/observability"
	"github.com/meridian-sis/meridian-sis/internal/rbac"
	"github.com/meridian-sis/meridian-sis/internal/roles"
	"github.com/meridian-sis/meridian-sis/internal/students"
	"github.com/meridian-sis/meridian-sis/internal/users"
	"github.com/meridian-sis/meridian-sis/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Authenticator     func(http.Handler) http.Handler
	AuthHandler       *auth.Handler
	MenuHandler       *menu.Handler
	RolesHandler      *roles.Handler
	UsersHandler      *users.Handler
	RBACHandler       *rbac.Handler
	StudentsHandler   *students.Handler
	EmployeesHandler  *employees.Handler
	AttendanceHandler *attendance.Handler
	FeesHandler       *fees.Handler
	ExamsHandler      *exams.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:        params.Logger,
		Config:        params.Config,
		Authenticator: params.Authenticator,
		Metrics:       params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Static routes register before the wildcard ones on the same subtree:
	// /menus/user-menus comes from the RBAC handler, /menus/{menuID} from the
	// menu catalog handler.
	r.Route("/menus", func(r chi.Router) {
		if params.RBACHandler != nil {
			params.RBACHandler.MountMenuRoutes(r)
		}
		if params.MenuHandler != nil {
			params.MenuHandler.MountRoutes(r)
		}
	})
	r.Route("/roles", func(r chi.Router) {
		if params.RBACHandler != nil {
			params.RBACHandler.MountRoleRoutes(r)
		}
		if params.RolesHandler != nil {
			params.RolesHandler.MountRoutes(r)
		}
	})
	r.Route("/users", func(r chi.Router) {
		if params.RBACHandler != nil {
			params.RBACHandler.MountUserRoutes(r)
		}
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
	})

	if params.StudentsHandler != nil {
		r.Route("/students", params.StudentsHandler.MountRoutes)
	}
	if params.EmployeesHandler != nil {
		r.Route("/employees", params.EmployeesHandler.MountRoutes)
	}
	if params.AttendanceHandler != nil {
		r.Route("/attendance", params.AttendanceHandler.MountRoutes)
	}
	if params.FeesHandler != nil {
		r.Route("/fees", params.FeesHandler.MountRoutes)
	}
	if params.ExamsHandler != nil {
		r.Route("/exams", params.ExamsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
