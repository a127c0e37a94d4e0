package debug

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
	"github.com/Kcinzaa/Hatyaifinal/pkg/utils"
)

// TranscriptSource exposes the dispatcher's recent exchanges.
type TranscriptSource interface {
	Transcript() []chat.Message
}

// Handler serves operator-only views of in-memory state.
type Handler struct {
	source TranscriptSource
}

type transcriptReport struct {
	Count    int            `json:"count"`
	Messages []chat.Message `json:"messages"`
}

func New(source TranscriptSource) *Handler {
	return &Handler{source: source}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/debug/transcript", h.handleTranscript)
}

// handleTranscript 返回最近的对话记录，按时间从旧到新。
func (h *Handler) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	messages := h.source.Transcript()
	utils.RespondJSON(w, http.StatusOK, transcriptReport{
		Count:    len(messages),
		Messages: messages,
	})
}
