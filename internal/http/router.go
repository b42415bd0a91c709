package http

import (
	"net/http"

	"bujo/internal/auth"
	"bujo/internal/bullet"
	"bujo/internal/config"
	"bujo/internal/http/handler"
	mw "bujo/internal/http/middleware"
	"bujo/internal/page"
	"bujo/internal/space"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	spaceSvc := &space.Service{DB: db}
	pageSvc := &page.Service{DB: db, Spaces: spaceSvc}
	bulletSvc := &bullet.Service{DB: db, Spaces: spaceSvc, Pages: pageSvc}

	spaceH := &handler.SpaceHandler{Spaces: spaceSvc, Pages: pageSvc, Bullets: bulletSvc}
	inviteH := &handler.InviteHandler{DB: db, Spaces: spaceSvc}
	bulletH := &handler.BulletHandler{Bullets: bulletSvc}
	adminH := &handler.AdminHandler{DB: db}

	r.Route("/spaces", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", spaceH.Create)
		r.Get("/", spaceH.List)

		r.Get("/{spaceID}/today", spaceH.Today)
		r.Post("/{spaceID}/invites", inviteH.Create)
		r.Post("/{spaceID}/pages/{pageID}/bullets", bulletH.Create)
	})

	r.Route("/invites", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", inviteH.ListPending)
		r.Post("/{inviteID}/accept", inviteH.Accept)
	})

	r.Route("/bullets", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/{bulletID}/toggle", bulletH.Toggle)
		r.Post("/{bulletID}/cancel", bulletH.Cancel)
		r.Post("/{bulletID}/private", bulletH.TogglePrivate)
		r.Put("/{bulletID}/assignee", bulletH.Reassign)
		r.Delete("/{bulletID}", bulletH.Delete)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/users", adminH.ListUsers)
		r.Delete("/users/{userID}", adminH.DeleteUser)
	})

	return r
}
