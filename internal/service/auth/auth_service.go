package auth

import (
	"context"
	"fmt"

	"versus-be/internal/domain"
	"versus-be/internal/service"
	"versus-be/pkg/errors"
	"versus-be/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// Service implements the AuthService interface with locally issued HS256
// tokens. Token issuance lives in the identity frontend; this side only
// validates and resolves participants.
type Service struct {
	secret []byte
	logger *logger.Logger
}

// NewService creates a new auth service
func NewService(jwtSecret string, logger *logger.Logger) service.AuthService {
	return &Service{
		secret: []byte(jwtSecret),
		logger: logger,
	}
}

// ValidateToken validates a bearer token and resolves the participant.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*domain.Participant, error) {
	if len(s.secret) == 0 {
		s.logger.Error("JWT secret is not configured")
		return nil, errors.NewInternalError("authentication is not configured", nil)
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.logger.WithError(err).Debug("Token validation failed")
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, errors.NewAuthenticationError("Token carries no subject")
	}

	return &domain.Participant{
		ID:      claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.Role == "admin",
	}, nil
}

// tokenClaims are the registered claims plus the participant profile fields
// the identity frontend embeds.
type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
