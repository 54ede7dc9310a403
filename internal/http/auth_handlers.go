package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vacations-api/internal/auth"
	"vacations-api/internal/domain"
	"vacations-api/internal/service"
)

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *domain.User) {
	token, err := h.tokens.Issue(auth.Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: userToResponse(*user)})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), principal(c).UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) updateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), principal(c).UserID, domain.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), principal(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
