package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"farmgate-api/internal/model"
	"farmgate-api/internal/repository"
	"farmgate-api/pkg/uid"
)

// AuditRecorder accepts audit entries without blocking the caller.
// Recording is advisory: a lost or failed entry never affects the
// operation it describes.
type AuditRecorder interface {
	Record(entry model.AuditLogEntry)
}

const (
	auditQueueSize    = 256
	auditWriteTimeout = 5 * time.Second
)

// AuditLogger persists audit entries through a bounded background queue.
// When the queue is full the oldest pending entry is dropped, keeping
// Record non-blocking under any backlog.
type AuditLogger struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger

	queue    chan model.AuditLogEntry
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	dropped atomic.Int64
}

// NewAuditLogger creates the logger and starts its background writer.
func NewAuditLogger(repo repository.AuditLogRepository, logger *zap.Logger) *AuditLogger {
	l := &AuditLogger{
		repo:   repo,
		logger: logger,
		queue:  make(chan model.AuditLogEntry, auditQueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go l.run()

	return l
}

// Record enqueues an entry for background persistence. Never blocks.
func (l *AuditLogger) Record(entry model.AuditLogEntry) {
	if entry.ID == "" {
		entry.ID = uid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	select {
	case l.queue <- entry:
		return
	default:
	}

	// Queue full: drop the oldest pending entry to make room.
	select {
	case <-l.queue:
		l.dropped.Add(1)
	default:
	}

	select {
	case l.queue <- entry:
	default:
		l.dropped.Add(1)
	}
}

// Query returns audit records matching the filter.
func (l *AuditLogger) Query(ctx context.Context, filter model.AuditLogFilter) ([]model.AuditLogEntry, int64, error) {
	return l.repo.Query(ctx, filter)
}

// Dropped returns the number of entries lost to queue overflow.
func (l *AuditLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Close stops the writer after draining pending entries.
func (l *AuditLogger) Close() error {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	<-l.done
	return nil
}

func (l *AuditLogger) run() {
	defer close(l.done)

	for {
		select {
		case entry := <-l.queue:
			l.write(entry)
		case <-l.stop:
			// Drain whatever is still queued, then exit.
			for {
				select {
				case entry := <-l.queue:
					l.write(entry)
				default:
					return
				}
			}
		}
	}
}

// write persists one entry. Failures are logged and swallowed.
func (l *AuditLogger) write(entry model.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := l.repo.Insert(ctx, &entry); err != nil {
		l.logger.Warn("audit log write failed",
			zap.String("action", string(entry.Action)),
			zap.String("resource_type", string(entry.ResourceType)),
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err))
	}
}

var _ AuditRecorder = (*AuditLogger)(nil)
