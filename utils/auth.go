package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned for every verification failure; callers must
// not learn whether the token was malformed, expired or forged.
var ErrInvalidToken = errors.New("invalid token")

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
	return err == nil
}

// Claims carried by both token types. IsAdmin is always present on access
// tokens and absent on refresh tokens.
type Claims struct {
	IsAdmin *bool  `json:"is_admin,omitempty"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (ti *TokenIssuer) IssueAccess(username string, isAdmin bool) (string, error) {
	return ti.sign(username, &isAdmin, TokenTypeAccess, ti.accessTTL)
}

func (ti *TokenIssuer) IssueRefresh(username string) (string, error) {
	return ti.sign(username, nil, TokenTypeRefresh, ti.refreshTTL)
}

func (ti *TokenIssuer) sign(subject string, isAdmin *bool, typ string, ttl time.Duration) (string, error) {
	now := ti.now()
	claims := &Claims{
		IsAdmin: isAdmin,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		claims,
	)

	return token.SignedString(ti.secret)
}

// Verify parses tokenString and checks that it carries the expected type.
func (ti *TokenIssuer) Verify(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.Type != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
