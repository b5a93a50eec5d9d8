package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// @Summary      List users
// @Description  Every registered user except the caller
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   service.UserSummary
// @Router       /users [get]
func (s *Server) handleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.svc.Users.ListOthers(r.Context(), CurrentUser(r).ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// @Summary      Get user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path  string  true  "User ID"
// @Success      200  {object}  service.UserSummary
// @Failure      404  {object}  errorResponse
// @Router       /users/{userID} [get]
func (s *Server) handleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.svc.Users.GetUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
