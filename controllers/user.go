package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskassign/store"
)

type UserController struct {
	Users store.UserDirectory
}

type userOut struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type usernameOut struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func (uc *UserController) GetUsers(c *gin.Context) {
	users, err := uc.Users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]userOut, 0, len(users))
	for _, u := range users {
		out = append(out, userOut{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
	}
	c.JSON(http.StatusOK, out)
}

func (uc *UserController) GetNonAdminUsernames(c *gin.Context) {
	users, err := uc.Users.ListNonAdminUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]usernameOut, 0, len(users))
	for _, u := range users {
		out = append(out, usernameOut{ID: u.ID, Username: u.Username})
	}
	c.JSON(http.StatusOK, out)
}
