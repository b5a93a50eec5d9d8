package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type sendMessageRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// @Summary      List messages
// @Description  Conversation history, oldest first
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Success      200  {array}   service.MessageSummary
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /conversations/{conversationID}/messages [get]
func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := s.svc.Messages.History(r.Context(), chi.URLParam(r, "conversationID"), CurrentUser(r).ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Send message
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string              true  "Conversation ID"
// @Param        input           body  sendMessageRequest  true  "Message"
// @Success      200  {object}  service.MessageSummary
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /conversations/{conversationID}/messages [post]
func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		msg, err := s.svc.Messages.Send(r.Context(), chi.URLParam(r, "conversationID"), CurrentUser(r).ID, req.Text)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

// @Summary      Poll messages
// @Description  Messages sent or received by the caller after lastMessageId, oldest first
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        lastMessageId  query  string  false  "Cursor: ID of the last message already seen"
// @Success      200  {array}   service.MessageEvent
// @Failure      400  {object}  errorResponse
// @Router       /messages/poll [get]
func (s *Server) handlePoll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := s.svc.Messages.Poll(r.Context(), CurrentUser(r).ID, r.URL.Query().Get("lastMessageId"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}
