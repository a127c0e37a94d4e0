package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Kcinzaa/Hatyaifinal/internal/handler/chat"
	"github.com/Kcinzaa/Hatyaifinal/internal/handler/debug"
	"github.com/Kcinzaa/Hatyaifinal/internal/handler/health"
	"github.com/Kcinzaa/Hatyaifinal/internal/handler/static"
	middlewarePkg "github.com/Kcinzaa/Hatyaifinal/internal/middleware"
	chatModel "github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
)

// Deps carries what the router needs from the service layer.
type Deps struct {
	Dispatcher chat.Dispatcher
	Catalog    chatModel.Catalog
	Relay      health.RelayStatus
	AI         health.AIStatus
	StaticDir  string
	// Transcript, when set, is served at /debug/transcript.
	Transcript debug.TranscriptSource
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chat.New(deps.Dispatcher, deps.Catalog).RegisterRoutes(r)
	health.New(deps.Relay, deps.AI).RegisterRoutes(r)
	if deps.Transcript != nil {
		debug.New(deps.Transcript).RegisterRoutes(r)
	}

	// Everything else is the single-page frontend.
	r.Get("/*", static.New(deps.StaticDir).ServeHTTP)

	return r
}
