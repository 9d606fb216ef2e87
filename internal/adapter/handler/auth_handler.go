package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tamerlan-hash/diploma-backend/internal/adapter/storage/postgres"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/service"
)

type AuthHandler struct {
	svc  *service.AuthService
	repo postgres.Store
}

func NewAuthHandler(svc *service.AuthService, repo postgres.Store) *AuthHandler {
	return &AuthHandler{svc: svc, repo: repo}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.repo.GetAdminByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if !h.svc.CheckPasswordHash(req.Password, admin.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.svc.GenerateToken(admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
