package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskassign/middleware"
	"taskassign/services"
)

type AuthController struct {
	Auth *services.AuthService
}

type registerRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if _, err := ac.Auth.Register(c.Request.Context(), req.Username, req.Password, req.IsAdmin); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	pair, err := ac.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (ac *AuthController) Refresh(c *gin.Context) {
	pair, err := ac.Auth.Refresh(c.Request.Context(), refreshTokenFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.Auth.Logout(c.Request.Context(), refreshTokenFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// refreshTokenFrom accepts the token as a JSON body field, a "token" query
// parameter, or a bearer header, in that order.
func refreshTokenFrom(c *gin.Context) string {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	tok, _ := middleware.BearerToken(c)
	return tok
}
