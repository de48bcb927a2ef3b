package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/cryptox"
	"github.com/dmitrijs2005/recipesync/internal/server/auth"
	"github.com/dmitrijs2005/recipesync/internal/server/config"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/go-playground/validator/v10"
)

// AuthService enrols devices and checks their access tokens.
type AuthService struct {
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	enrollmentKeyHash           string
	validate                    *validator.Validate
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		enrollmentKeyHash:           cfg.EnrollmentKeyHash,
		validate:                    validator.New(),
	}
}

// Enabled reports whether sync requests must carry a token.
func (s *AuthService) Enabled() bool {
	return s.enrollmentKeyHash != ""
}

// IssueToken checks the enrollment key and returns a signed access token for
// the device.
func (s *AuthService) IssueToken(ctx context.Context, req syncproto.TokenRequest) (*syncproto.TokenResponse, error) {
	if !s.Enabled() {
		return nil, common.ErrAuthDisabled
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPayload, err)
	}
	if !cryptox.CheckEnrollmentKey(s.enrollmentKeyHash, req.EnrollmentKey) {
		return nil, common.ErrUnauthorized
	}

	token, expires, err := auth.GenerateToken(req.DeviceID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &syncproto.TokenResponse{AccessToken: token, ExpiresAt: expires.UnixMilli()}, nil
}

// Authenticate returns the device id carried by token.
func (s *AuthService) Authenticate(token string) (string, error) {
	return auth.GetDeviceIDFromToken(token, s.jwtSecret)
}
