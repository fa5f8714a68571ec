package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fractal-bootcamp/bite-tracker/utils"
)

// DevController mints bearer tokens for local development, where no real
// identity provider is in front of the API. Only registered in debug
// mode.
type DevController struct {
	JWTSecret string
}

// POST /dev/token  {"subject": "user_123"}
func (h *DevController) MintToken(c *gin.Context) {
	var req struct {
		Subject string `json:"subject" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	token, err := utils.GenerateJWT(req.Subject, h.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
