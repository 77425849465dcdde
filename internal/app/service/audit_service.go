package service

import (
	"authgate/internal/domain/model"
	"authgate/internal/domain/repository"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AuditPublisher records authentication events. Publishing is best
// effort: callers log failures and carry on.
type AuditPublisher interface {
	Publish(ctx context.Context, event model.AuthEvent) error
}

func NewAuthEvent(typ model.AuthEventType, username, remoteAddr string) model.AuthEvent {
	return model.AuthEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Username:   username,
		RemoteAddr: remoteAddr,
		OccurredAt: time.Now().UTC(),
	}
}

type NoopAuditPublisher struct{}

func (NoopAuditPublisher) Publish(context.Context, model.AuthEvent) error { return nil }

// RepositoryAuditPublisher writes events straight to the repository. Used
// when no queue is configured.
type RepositoryAuditPublisher struct {
	repo repository.AuthEventRepository
}

func NewRepositoryAuditPublisher(repo repository.AuthEventRepository) *RepositoryAuditPublisher {
	return &RepositoryAuditPublisher{repo: repo}
}

func (p *RepositoryAuditPublisher) Publish(ctx context.Context, event model.AuthEvent) error {
	return p.repo.Create(ctx, &event)
}

// RedisAuditPublisher pushes events onto a Redis list drained by
// worker.AuditWorker.
type RedisAuditPublisher struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisAuditPublisher(rdb *redis.Client, queueName string) *RedisAuditPublisher {
	return &RedisAuditPublisher{rdb: rdb, queueName: queueName}
}

func (p *RedisAuditPublisher) Publish(ctx context.Context, event model.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}
	if err := p.rdb.LPush(ctx, p.queueName, payload).Err(); err != nil {
		return fmt.Errorf("failed to push auth event to Redis queue: %w", err)
	}
	return nil
}

// AuditService serves the recorded trail to admins.
type AuditService struct {
	repo repository.AuthEventRepository
}

func NewAuditService(repo repository.AuthEventRepository) *AuditService {
	return &AuditService{repo: repo}
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

func (s *AuditService) ListRecent(ctx context.Context, limit int) ([]model.AuthEvent, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	events, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth events: %w", err)
	}
	return events, nil
}
