package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/recipesync/internal/client/client"
	"github.com/dmitrijs2005/recipesync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/google/uuid"
)

// AuthService manages the device identity and its access token.
type AuthService struct {
	client client.Client
	db     *sql.DB
	// deviceID, when set, overrides the stored device id.
	deviceID string
}

func NewAuthService(c client.Client, db *sql.DB, deviceID string) *AuthService {
	return &AuthService{client: c, db: db, deviceID: deviceID}
}

func (a *AuthService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// DeviceID returns the configured device id, or the stored one, generating
// and storing a new id on first use.
func (a *AuthService) DeviceID(ctx context.Context) (string, error) {
	if a.deviceID != "" {
		return a.deviceID, nil
	}

	repo := a.getMetadataRepo()
	id, ok, err := repo.Get(ctx, metadata.KeyDeviceID)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}

	id = uuid.NewString()
	if err := repo.Set(ctx, metadata.KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// Login enrols this device with the enrollment key, stores the access token
// and installs it on the client.
func (a *AuthService) Login(ctx context.Context, enrollmentKey string) error {
	deviceID, err := a.DeviceID(ctx)
	if err != nil {
		return fmt.Errorf("device id error: %w", err)
	}

	resp, err := a.client.Token(ctx, syncproto.TokenRequest{DeviceID: deviceID, EnrollmentKey: enrollmentKey})
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.getMetadataRepo().Set(ctx, metadata.KeyAccessToken, resp.AccessToken); err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}
	a.client.SetAccessToken(resp.AccessToken)
	return nil
}

// RestoreToken installs a previously stored token on the client. It reports
// whether one was found.
func (a *AuthService) RestoreToken(ctx context.Context) (bool, error) {
	token, ok, err := a.getMetadataRepo().Get(ctx, metadata.KeyAccessToken)
	if err != nil || !ok {
		return false, err
	}
	a.client.SetAccessToken(token)
	return true, nil
}

// Logout forgets the stored token.
func (a *AuthService) Logout(ctx context.Context) error {
	a.client.SetAccessToken("")
	return a.getMetadataRepo().Delete(ctx, metadata.KeyAccessToken)
}
