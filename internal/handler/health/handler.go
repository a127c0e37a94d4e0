package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kcinzaa/Hatyaifinal/internal/service/relay"
	"github.com/Kcinzaa/Hatyaifinal/pkg/utils"
)

// RelayStatus reports on the relay backend.
type RelayStatus interface {
	Configured() bool
	Session() (relay.Session, bool)
}

// AIStatus reports on the generative backend.
type AIStatus interface {
	Configured() bool
	Provider() string
	ModelName() string
}

// Handler serves a liveness report.
type Handler struct {
	relay RelayStatus
	ai    AIStatus
}

type relayReport struct {
	Configured bool           `json:"configured"`
	Session    *relay.Session `json:"session,omitempty"`
}

type aiReport struct {
	Configured bool   `json:"configured"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
}

type report struct {
	Status string      `json:"status"`
	Relay  relayReport `json:"relay"`
	AI     aiReport    `json:"ai"`
}

func New(relay RelayStatus, ai AIStatus) *Handler {
	return &Handler{relay: relay, ai: ai}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	rep := report{
		Status: "ok",
		Relay:  relayReport{Configured: h.relay.Configured()},
		AI: aiReport{
			Configured: h.ai.Configured(),
			Provider:   h.ai.Provider(),
			Model:      h.ai.ModelName(),
		},
	}
	if session, ok := h.relay.Session(); ok {
		rep.Relay.Session = &session
	}

	utils.RespondJSON(w, http.StatusOK, rep)
}
