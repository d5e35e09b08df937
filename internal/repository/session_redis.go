package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/models"
)

const (
	sessionKeyPrefix = "calldojo:session:"
	sessionIndexKey  = "calldojo:sessions"
)

// redisSessionRepository stores sessions as JSON values with a TTL, with a
// set index for listing. A TTL-expired session simply disappears from the
// index on the next read.
type redisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisSessionRepository builds a Redis-backed session store.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration, logger zerolog.Logger) SessionRepository {
	return &redisSessionRepository{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_repository").Logger(),
	}
}

func (r *redisSessionRepository) Save(ctx context.Context, session *models.CallSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, payload, r.ttl)
	pipe.SAdd(ctx, sessionIndexKey, session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*models.CallSession, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session models.CallSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := r.client.SRem(ctx, sessionIndexKey, id).Err(); err != nil {
		r.logger.Warn().Err(err).Str("session_id", id).Msg("failed to remove session from index")
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *redisSessionRepository) List(ctx context.Context) ([]*models.CallSession, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*models.CallSession, 0, len(ids))
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if err == ErrSessionNotFound {
			// Expired entry, drop it from the index.
			if err := r.client.SRem(ctx, sessionIndexKey, id).Err(); err != nil {
				r.logger.Warn().Err(err).Str("session_id", id).Msg("failed to prune expired session")
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (r *redisSessionRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.CallSession, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]*models.CallSession, 0, len(all))
	for _, session := range all {
		if matchesStudent(session, studentID) {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}
