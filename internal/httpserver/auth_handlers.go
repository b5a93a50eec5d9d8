package httpserver

import (
	"net/http"

	"chatpoll/internal/domain"
	"chatpoll/internal/service"
)

type registerRequest struct {
	Username    string `json:"username" validate:"required,max=50"`
	Password    string `json:"password" validate:"required,max=72"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// @Summary      Register a new user
// @Description  Register a new user and return an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body registerRequest true "Register input"
// @Success      200  {object}  service.AuthResult
// @Failure      400  {object}  errorResponse
// @Router       /auth/register [post]
func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		res, err := s.svc.Auth.Register(r.Context(), service.RegisterInput{
			Username:    req.Username,
			Password:    req.Password,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// @Summary      Login
// @Description  Login with username and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body loginRequest true "Login input"
// @Success      200  {object}  service.AuthResult
// @Failure      401  {object}  errorResponse
// @Router       /auth/login [post]
func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		res, err := s.svc.Auth.Login(r.Context(), service.LoginInput{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// @Summary      Logout
// @Description  Marks the user offline and revokes the presented token
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  successResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := CurrentClaims(r)
		if claims == nil {
			s.writeError(w, r, domain.ErrUnauthenticated)
			return
		}
		if err := s.svc.Auth.Logout(r.Context(), claims); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// @Summary      Get Current User
// @Description  Get currently logged in user details
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  service.UserSummary
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (s *Server) handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			s.writeError(w, r, domain.ErrUnauthenticated)
			return
		}
		writeJSON(w, http.StatusOK, service.NewUserSummary(user))
	}
}
