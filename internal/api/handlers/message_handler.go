package handlers

import (
	"net/http"

	"github.com/Rakhazzan/SINTESIS/internal/application/services"
)

// MessageHandler handles contacts and message sends
type MessageHandler struct {
	service *services.MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// ListContacts handles GET /api/contacts
func (h *MessageHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	contacts, err := h.service.Contacts(r.Context(), session)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, contacts)
}

// SendMessage handles POST /api/messages/{peerID}
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	message, err := h.service.Send(r.Context(), session, r.PathValue("peerID"), req.Body)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, message)
}
