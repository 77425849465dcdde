package repository

import (
	"authgate/internal/domain/model"
	"context"
	"database/sql"
	"fmt"
	"sync"
)

type AuthEventRepository interface {
	Create(ctx context.Context, event *model.AuthEvent) error
	// ListRecent returns at most limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.AuthEvent, error)
}

type pgAuthEventRepository struct {
	db *sql.DB
}

func NewPgAuthEventRepository(db *sql.DB) AuthEventRepository {
	return &pgAuthEventRepository{db: db}
}

func (r *pgAuthEventRepository) Create(ctx context.Context, event *model.AuthEvent) error {
	query := `INSERT INTO auth_events (id, event_type, username, remote_addr, occurred_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, string(event.Type), event.Username, event.RemoteAddr, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("pgAuthEventRepository.Create: %w", err)
	}
	return nil
}

func (r *pgAuthEventRepository) ListRecent(ctx context.Context, limit int) ([]model.AuthEvent, error) {
	query := `SELECT id, event_type, username, remote_addr, occurred_at
	          FROM auth_events ORDER BY occurred_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgAuthEventRepository.ListRecent: %w", err)
	}
	defer rows.Close()

	events := []model.AuthEvent{}
	for rows.Next() {
		var e model.AuthEvent
		var eventType string
		if err := rows.Scan(&e.ID, &eventType, &e.Username, &e.RemoteAddr, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("pgAuthEventRepository.ListRecent scan: %w", err)
		}
		e.Type = model.AuthEventType(eventType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAuthEventRepository.ListRecent rows: %w", err)
	}
	return events, nil
}

type memoryAuthEventRepository struct {
	mu     sync.Mutex
	events []model.AuthEvent
}

func NewMemoryAuthEventRepository() AuthEventRepository {
	return &memoryAuthEventRepository{}
}

func (r *memoryAuthEventRepository) Create(_ context.Context, event *model.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *memoryAuthEventRepository) ListRecent(_ context.Context, limit int) ([]model.AuthEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.AuthEvent{}
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}
