package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/freelancehub/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role      model.Role `json:"role,omitempty"`
	Staff     bool       `json:"staff,omitempty"`
	TokenType string     `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string
	Refresh string
}

// Manager issues and verifies HS256 access and refresh tokens.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
		now:           time.Now,
	}
}

func (m *Manager) IssuePair(user model.User) (TokenPair, error) {
	access, err := m.IssueAccess(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(user, tokenTypeRefresh, m.refreshTTL, m.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *Manager) IssueAccess(user model.User) (string, error) {
	return m.sign(user, tokenTypeAccess, m.accessTTL, m.accessSecret)
}

func (m *Manager) sign(user model.User, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := m.now()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if tokenType == tokenTypeAccess {
		claims.Role = user.Role
		claims.Staff = user.IsStaff
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ParseAccess verifies an access token and returns the caller it names.
func (m *Manager) ParseAccess(raw string) (model.Principal, error) {
	claims, err := m.parse(raw, tokenTypeAccess, m.accessSecret)
	if err != nil {
		return model.Principal{}, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Principal{}, ErrInvalidToken
	}
	return model.Principal{UserID: userID, Role: claims.Role, IsStaff: claims.Staff}, nil
}

// ParseRefresh verifies a refresh token and returns its user id.
func (m *Manager) ParseRefresh(raw string) (uuid.UUID, error) {
	claims, err := m.parse(raw, tokenTypeRefresh, m.refreshSecret)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func (m *Manager) parse(raw, tokenType string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
