package chat

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
	chatService "github.com/Kcinzaa/Hatyaifinal/internal/service/chat"
	"github.com/Kcinzaa/Hatyaifinal/pkg/utils"
)

// Dispatcher routes a parsed request to a backend.
type Dispatcher interface {
	Dispatch(ctx context.Context, req chatService.Request) chatService.Result
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	dispatcher Dispatcher
	catalog    chat.Catalog
}

// New 创建聊天处理器
func New(dispatcher Dispatcher, catalog chat.Catalog) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		catalog:    catalog,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat always answers 200 once the body decodes; backend failures become a
// sentence from the catalog in the reply field.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chat.Request
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.dispatcher.Dispatch(r.Context(), chatService.ParseRequest(payload.Message))

	reply := result.Text
	if result.Err != nil {
		reply = h.catalog.Render(result.Route, result.Kind())
	}

	utils.RespondJSON(w, http.StatusOK, chat.Reply{Reply: reply})
}
