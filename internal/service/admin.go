package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/repo"
	"Go_Shelf/utils"
)

var adminMu sync.Mutex

// PrepareAdminCredentials hashes a plain ADMIN_PASSWORD once so the clear
// text does not stay in memory.
func PrepareAdminCredentials() error {
	adminMu.Lock()
	defer adminMu.Unlock()
	if config.AppConfig.AdminPasswordHash != "" || config.AppConfig.AdminPassword == "" {
		config.AppConfig.AdminPassword = ""
		return nil
	}
	hash, err := utils.HashPwd(config.AppConfig.AdminPassword)
	if err != nil {
		return err
	}
	config.AppConfig.AdminPasswordHash = hash
	config.AppConfig.AdminPassword = ""
	return nil
}

func adminHash() (string, error) {
	if err := PrepareAdminCredentials(); err != nil {
		return "", err
	}
	adminMu.Lock()
	defer adminMu.Unlock()
	return config.AppConfig.AdminPasswordHash, nil
}

// Login exchanges admin credentials for a session token.
func Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if !config.AppConfig.JWTConfigured() {
		return nil, apperr.Unavailable("Admin login is not configured")
	}
	hash, err := adminHash()
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "Internal server error", err)
	}
	if hash == "" {
		return nil, apperr.Unavailable("Admin login is not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(config.AppConfig.AdminUsername)) == 1
	pwdOK := utils.CheckPwd(req.Password, hash)
	if !userOK || !pwdOK {
		logger.L.Warn("admin login rejected", "username", req.Username)
		return nil, apperr.Unauthorized("Invalid username or password")
	}
	token, claims, err := utils.GenerateToken(config.AppConfig.AdminUsername, config.AppConfig.AdminSessionTTL)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "Internal server error", err)
	}
	logger.L.Info("admin login", "username", claims.Username, "jti", claims.ID)
	return &dto.LoginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// Session describes the caller's current session.
func Session(claims *utils.Claims) dto.SessionResponse {
	return dto.SessionResponse{Username: claims.Username, ExpiresAt: claims.ExpiresAt.Time.UTC()}
}

// Logout revokes the session token until it would have expired.
func Logout(ctx context.Context, claims *utils.Claims) (*dto.MessageResponse, error) {
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := repo.RevokeToken(ctx, claims.ID, ttl); err != nil {
		if errors.Is(err, repo.ErrRedisDisabled) {
			return nil, apperr.Unavailable("Session revocation is unavailable")
		}
		return nil, apperr.New(apperr.KindInternal, "Failed to revoke session", err)
	}
	return &dto.MessageResponse{Message: "Logged out"}, nil
}
