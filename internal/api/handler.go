package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"learnhub/m/domain"
	"learnhub/m/internal/logging"
	"learnhub/m/internal/mail"
	"learnhub/m/internal/pdf"
	"learnhub/m/internal/service"
	"learnhub/m/internal/upload"
)

// AuthService is what the HTTP layer needs from the auth service.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (domain.PublicUser, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	ValidateToken(ctx context.Context, token string) (domain.Identity, error)
	GetUsers(ctx context.Context) ([]domain.PublicUser, error)
	GetUserByID(ctx context.Context, id int64) (domain.PublicUser, error)
}

// CourseService is what the HTTP layer needs from the course service.
type CourseService interface {
	CreateCourse(ctx context.Context, title, description string, instructorID int64) (domain.Course, error)
	GetCourses(ctx context.Context) ([]domain.Course, error)
	GetCourseByID(ctx context.Context, id int64) (domain.Course, error)
	GetCoursesByInstructor(ctx context.Context, instructorID int64) ([]domain.Course, error)
	UpdateOwnedCourse(ctx context.Context, id int64, patch domain.CoursePatch, identity domain.Identity) (domain.Course, error)
	DeleteOwnedCourse(ctx context.Context, id int64, identity domain.Identity) (domain.Course, error)
}

// Options lists the collaborators of a Handler.
type Options struct {
	Auth    AuthService
	Courses CourseService
	Mailer  mail.Sender
	PDF     pdf.Renderer
	Uploads *upload.Uploader

	// UploadDir is served under /uploads when set (disk backend).
	UploadDir   string
	CORSOrigins []string
	Logger      logging.Logger
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	auth        AuthService
	courses     CourseService
	mailer      mail.Sender
	pdf         pdf.Renderer
	uploads     *upload.Uploader
	uploadDir   string
	corsOrigins []string
	log         logging.Logger
	validate    *validator.Validate
}

// New constructs a Handler.
func New(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		auth:        opts.Auth,
		courses:     opts.Courses,
		mailer:      opts.Mailer,
		pdf:         opts.PDF,
		uploads:     opts.Uploads,
		uploadDir:   opts.UploadDir,
		corsOrigins: origins,
		log:         log.With("component", "http"),
		validate:    newValidator(),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Group(func(protected chi.Router) {
				protected.Use(h.authenticate)
				protected.Get("/me", h.me)
				protected.Get("/users", h.listUsers)
				protected.Get("/users/{id}", h.getUser)
			})
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", h.listCourses)
			r.Get("/{id}", h.getCourse)
			r.Get("/instructor/{id}", h.listInstructorCourses)
			r.Group(func(protected chi.Router) {
				protected.Use(h.authenticate)
				protected.Post("/", h.createCourse)
				protected.Put("/{id}", h.updateCourse)
				protected.Delete("/{id}", h.deleteCourse)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.authenticate)
			pr.With(h.authorize(domain.RoleAdmin)).Post("/mail/send", h.sendMail)
			pr.Post("/pdf/from-html", h.htmlToPDF)
			pr.Post("/uploads/single", h.uploadSingle)
			pr.Post("/uploads/multi", h.uploadMulti)
		})
	})

	if h.uploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploadDir))))
	}

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
