package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-service/internal/models"
	utils "rental-service/shared/utils"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores login sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.UserSession) error
	GetSession(ctx context.Context, sessionID string) (*models.UserSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}

type redisSessionRepository struct {
	client     *redis.Client
	expiration time.Duration
}

func NewRedisSessionRepository(client *redis.Client, expiration time.Duration) SessionRepository {
	return &redisSessionRepository{client: client, expiration: expiration}
}

func (r *redisSessionRepository) CreateSession(ctx context.Context, session *models.UserSession) error {
	if session.ID == "" || session.UserID == "" {
		return fmt.Errorf("session and user ID are required")
	}

	session.ExpiresAt = session.CreatedAt.Add(r.expiration)
	session.IsActive = true

	sessionData, err := utils.SerializeModel(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	userSessionsKey := userSessionsKey(session.UserID)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), sessionData, r.expiration)
	pipe.SAdd(ctx, userSessionsKey, session.ID)
	pipe.Expire(ctx, userSessionsKey, r.expiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) GetSession(ctx context.Context, sessionID string) (*models.UserSession, error) {
	sessionData, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.UserSession
	if err := utils.DeserializeModel(sessionData, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	return &session, nil
}

func (r *redisSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userSessionsKey(session.UserID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) DeleteUserSessions(ctx context.Context, userID string) error {
	key := userSessionsKey(userID)
	sessionIDs, err := r.client.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get user sessions: %w", err)
	}
	if len(sessionIDs) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, id := range sessionIDs {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func userSessionsKey(userID string) string {
	return "user_sessions:" + userID
}

// memorySessionRepository backs sessions when Redis is disabled. Sessions
// do not survive a restart.
type memorySessionRepository struct {
	mu         sync.RWMutex
	sessions   map[string]models.UserSession
	expiration time.Duration
	now        func() time.Time
}

func NewMemorySessionRepository(expiration time.Duration) SessionRepository {
	return &memorySessionRepository{
		sessions:   make(map[string]models.UserSession),
		expiration: expiration,
		now:        time.Now,
	}
}

func (r *memorySessionRepository) CreateSession(_ context.Context, session *models.UserSession) error {
	if session.ID == "" || session.UserID == "" {
		return fmt.Errorf("session and user ID are required")
	}
	session.ExpiresAt = session.CreatedAt.Add(r.expiration)
	session.IsActive = true

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *memorySessionRepository) GetSession(_ context.Context, sessionID string) (*models.UserSession, error) {
	r.mu.RLock()
	session, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok || r.now().After(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *memorySessionRepository) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *memorySessionRepository) DeleteUserSessions(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}
