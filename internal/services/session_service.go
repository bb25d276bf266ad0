package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	"rental-service/internal/repository"
)

type SessionService struct {
	sessionRepo repository.SessionRepository
}

func NewSessionService(sessionRepo repository.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

func (s *SessionService) CreateSession(ctx context.Context, userID, deviceInfo, ipAddress string, now time.Time) (*models.UserSession, error) {
	session := &models.UserSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		CreatedAt:  now,
		IsActive:   true,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession returns the live session for sessionID owned by userID.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID, userID string) (*models.UserSession, error) {
	session, err := s.sessionRepo.GetSession(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, apperr.Unauthorized("session expired or revoked")
	}
	if err != nil {
		return nil, apperr.Unexpected(err, "failed to load session")
	}
	if !session.IsActive || session.UserID != userID {
		return nil, apperr.Unauthorized("session expired or revoked")
	}
	return session, nil
}

func (s *SessionService) InvalidateSession(ctx context.Context, sessionID string) error {
	return s.sessionRepo.DeleteSession(ctx, sessionID)
}

func (s *SessionService) InvalidateUserSessions(ctx context.Context, userID string) error {
	return s.sessionRepo.DeleteUserSessions(ctx, userID)
}
