package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"farmgate-api/internal/model"
)

// stubAuditRepo collects inserted entries; Insert can be gated to simulate
// a slow store, or forced to fail.
type stubAuditRepo struct {
	mu      sync.Mutex
	written []model.AuditLogEntry

	started chan struct{} // closed when the first insert begins
	gate    chan struct{} // insert blocks until closed, when set
	fail    bool

	startOnce sync.Once
}

func (r *stubAuditRepo) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	if r.started != nil {
		r.startOnce.Do(func() { close(r.started) })
	}
	if r.gate != nil {
		<-r.gate
	}
	if r.fail {
		return errors.New("audit store unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written = append(r.written, *entry)
	return nil
}

func (r *stubAuditRepo) Query(ctx context.Context, filter model.AuditLogFilter) ([]model.AuditLogEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditLogEntry(nil), r.written...), int64(len(r.written)), nil
}

func (r *stubAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.written)
}

func testEntry(i int) model.AuditLogEntry {
	return model.AuditLogEntry{
		Action:       model.AuditActionCreate,
		ResourceType: model.AuditResourceInquiry,
		ResourceID:   fmt.Sprintf("inq-%d", i),
	}
}

func TestAuditLoggerDrainsOnClose(t *testing.T) {
	repo := &stubAuditRepo{}
	logger := NewAuditLogger(repo, zap.NewNop())

	for i := 0; i < 50; i++ {
		logger.Record(testEntry(i))
	}

	require.NoError(t, logger.Close())
	assert.Equal(t, 50, repo.count())
	assert.Zero(t, logger.Dropped())
}

func TestAuditLoggerFillsDefaults(t *testing.T) {
	repo := &stubAuditRepo{}
	logger := NewAuditLogger(repo, zap.NewNop())

	logger.Record(model.AuditLogEntry{
		Action:       model.AuditActionDelete,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   "p1",
	})
	require.NoError(t, logger.Close())

	require.Equal(t, 1, repo.count())
	entry := repo.written[0]
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestAuditLoggerDropsOldestWhenFull(t *testing.T) {
	repo := &stubAuditRepo{
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	logger := NewAuditLogger(repo, zap.NewNop())

	// Park the writer inside the first insert so the queue cannot drain.
	logger.Record(testEntry(0))
	<-repo.started

	total := auditQueueSize + 44
	for i := 1; i <= total; i++ {
		logger.Record(testEntry(i))
	}

	close(repo.gate)
	require.NoError(t, logger.Close())

	assert.Equal(t, int64(44), logger.Dropped())
	// The in-flight entry plus a full queue of the newest entries survive.
	assert.Equal(t, auditQueueSize+1, repo.count())
	last := repo.written[len(repo.written)-1]
	assert.Equal(t, fmt.Sprintf("inq-%d", total), last.ResourceID)
}

func TestAuditLoggerSwallowsWriteFailures(t *testing.T) {
	repo := &stubAuditRepo{fail: true}
	logger := NewAuditLogger(repo, zap.NewNop())

	for i := 0; i < 10; i++ {
		logger.Record(testEntry(i))
	}

	// Failures are logged and discarded; Close still returns cleanly.
	require.NoError(t, logger.Close())
	assert.Zero(t, repo.count())
	assert.Zero(t, logger.Dropped())
}

func TestAuditLoggerCloseIsIdempotent(t *testing.T) {
	logger := NewAuditLogger(&stubAuditRepo{}, zap.NewNop())
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}
