package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gatherly/gatherly/internal/domain"
	"github.com/gatherly/gatherly/internal/infrastructure/json"
	"github.com/gatherly/gatherly/internal/infrastructure/ws"
	"github.com/gatherly/gatherly/internal/presentation/utils"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	store    domain.MessageStore
	verifier ws.TokenVerifier
	core     *ws.Core
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewHandler(store domain.MessageStore, verifier ws.TokenVerifier, core *ws.Core, frontendOrigin string, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		store:    store,
		verifier: verifier,
		core:     core,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin header.
				return origin == "" || origin == frontendOrigin
			},
		},
		logger: logger,
	}
}

// GetMessagesHandler returns the persisted history for one event in
// ascending created_at order. Requires a bearer credential.
func (h *Handler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	token := utils.BearerToken(r)
	if _, err := h.verifier.Verify(token); err != nil {
		json.WriteUnauthorizedError(w, err, unauthorizedMessage(err))
		return
	}

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		json.WriteValidationError(w, errors.New("event ID must be a positive integer"))
		return
	}

	messages, err := h.store.ListByEvent(r.Context(), eventID)
	if err != nil {
		h.logger.Errorw("failed to list messages", "event_id", eventID, "error", err)
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, getMessagesResponse{
		Message:  "Messages fetched successfully",
		Messages: messages,
	})
}

// ServeWS upgrades to a websocket and hands the connection to the
// broadcast engine. Authentication happens in-band through the connect
// handshake, so the upgrade itself has no credential check.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	go h.core.HandleConnection(conn)
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return "Missing credential"
	case errors.Is(err, domain.ErrExpiredCredential):
		return "Expired token"
	default:
		return "Invalid token"
	}
}
