package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskassign/models"
	"taskassign/store"
	"taskassign/utils"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type AuthService struct {
	Users    store.UserDirectory
	Tokens   *utils.TokenIssuer
	Denylist store.TokenDenylist
}

func NewAuthService(users store.UserDirectory, tokens *utils.TokenIssuer, denylist store.TokenDenylist) *AuthService {
	return &AuthService{Users: users, Tokens: tokens, Denylist: denylist}
}

func (s *AuthService) Register(ctx context.Context, username, password string, isAdmin bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, newError(ErrValidation, "Username and password are required")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: username, PasswordHash: hash, IsAdmin: isAdmin}
	err = s.Users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, conflict("Username already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login never says whether the username or the password was wrong.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.Users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !utils.CheckPassword(password, user.PasswordHash) {
		return nil, unauthorized("Invalid credentials")
	}

	access, err := s.Tokens.IssueAccess(user.Username, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.Tokens.IssueRefresh(user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.FindUserByUsername(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthorized("Invalid refresh token")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	access, err := s.Tokens.IssueAccess(user.Username, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &TokenPair{AccessToken: access, TokenType: "bearer"}, nil
}

// Logout revokes a refresh token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.Denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Authenticate resolves an access token to the current user record.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.Tokens.Verify(accessToken, utils.TokenTypeAccess)
	if err != nil {
		return nil, unauthorized("Invalid or expired token")
	}
	user, err := s.Users.FindUserByUsername(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthorized("Invalid or expired token")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) verifyRefresh(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := s.Tokens.Verify(token, utils.TokenTypeRefresh)
	if err != nil {
		return nil, unauthorized("Invalid refresh token")
	}
	revoked, err := s.Denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return nil, unauthorized("Invalid refresh token")
	}
	return claims, nil
}
