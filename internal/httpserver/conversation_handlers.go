package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type startConversationResponse struct {
	ConversationID string `json:"conversationId"`
}

// @Summary      List conversations
// @Description  The caller's conversations, most recently active first
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   service.ConversationSummary
// @Router       /conversations [get]
func (s *Server) handleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convs, err := s.svc.Conversations.ListFor(r.Context(), CurrentUser(r).ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

// @Summary      Start conversation
// @Description  Returns the conversation with the user, creating it if needed
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path  string  true  "Other user ID"
// @Success      200  {object}  startConversationResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /conversations/start/{userID} [post]
func (s *Server) handleStartConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.svc.Conversations.FindOrStart(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "userID"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, startConversationResponse{ConversationID: id})
	}
}

// @Summary      Mark conversation read
// @Description  Marks every message the caller received in the conversation as read
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Success      200  {object}  successResponse
// @Router       /conversations/{conversationID}/read [put]
func (s *Server) handleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convID := chi.URLParam(r, "conversationID")
		n, err := s.svc.Messages.MarkRead(r.Context(), convID, CurrentUser(r).ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.log.Debug("marked read", "conversation_id", convID, "count", n)
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
