package worker

import (
	"authgate/internal/domain/model"
	"authgate/internal/domain/repository"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuditWorker drains the auth event queue into the event repository.
type AuditWorker struct {
	rdb       *redis.Client
	repo      repository.AuthEventRepository
	queueName string
	log       *slog.Logger

	// pollTimeout bounds each BRPOP so cancellation is noticed.
	pollTimeout  time.Duration
	errorBackoff time.Duration
}

func NewAuditWorker(rdb *redis.Client, repo repository.AuthEventRepository, queueName string, log *slog.Logger) *AuditWorker {
	return &AuditWorker{
		rdb:          rdb,
		repo:         repo,
		queueName:    queueName,
		log:          log.With("component", "audit_worker"),
		pollTimeout:  time.Second,
		errorBackoff: 5 * time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info("audit worker started", "queue", w.queueName)
	for {
		if ctx.Err() != nil {
			w.log.Info("audit worker stopping")
			return
		}

		res, err := w.rdb.BRPop(ctx, w.pollTimeout, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("failed to BRPOP from audit queue", "queue", w.queueName, "error", err)
			w.sleep(ctx, w.errorBackoff)
			continue
		}

		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			w.log.Warn("BRPOP returned empty payload")
			continue
		}
		w.handle(ctx, res[1])
	}
}

func (w *AuditWorker) handle(ctx context.Context, payload string) {
	var event model.AuthEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		w.log.Error("dropping malformed auth event", "error", err)
		return
	}
	if event.ID == "" || event.Type == "" {
		w.log.Error("dropping incomplete auth event", "id", event.ID, "type", event.Type)
		return
	}

	if err := w.repo.Create(ctx, &event); err != nil {
		w.log.Error("failed to store auth event, re-queueing", "event_id", event.ID, "error", err)
		w.requeue(payload)
		w.sleep(ctx, w.errorBackoff)
		return
	}
	w.log.Debug("auth event stored", "event_id", event.ID, "type", event.Type)
}

// requeue pushes payload back to the consumer end of the list. It uses a
// fresh context so an event popped during shutdown is not lost.
func (w *AuditWorker) requeue(payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.rdb.RPush(ctx, w.queueName, payload).Err(); err != nil {
		w.log.Error("failed to re-queue auth event", "error", err)
	}
}

func (w *AuditWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
