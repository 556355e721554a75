package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"farmgate-api/internal/cache"
	"farmgate-api/internal/model"
	"farmgate-api/internal/repository"
	"farmgate-api/pkg/apierror"
)

// fakeInquiryRepo is an in-memory InquiryRepository for service tests.
type fakeInquiryRepo struct {
	mu        sync.Mutex
	inquiries map[string]*model.Inquiry
	items     map[string][]model.InquiryItem
	failWith  error
}

func newFakeInquiryRepo() *fakeInquiryRepo {
	return &fakeInquiryRepo{
		inquiries: make(map[string]*model.Inquiry),
		items:     make(map[string][]model.InquiryItem),
	}
}

func (r *fakeInquiryRepo) Create(ctx context.Context, inquiry *model.Inquiry, items []model.InquiryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	cp := *inquiry
	r.inquiries[inquiry.ID] = &cp
	r.items[inquiry.ID] = append([]model.InquiryItem(nil), items...)
	return nil
}

func (r *fakeInquiryRepo) GetByID(ctx context.Context, id string) (*model.Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inquiry
	cp.Items = append([]model.InquiryItem(nil), r.items[id]...)
	return &cp, nil
}

func (r *fakeInquiryRepo) List(ctx context.Context, filter model.InquiryFilter) ([]model.Inquiry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Inquiry
	for _, inquiry := range r.inquiries {
		out = append(out, *inquiry)
	}
	return out, int64(len(out)), nil
}

func (r *fakeInquiryRepo) UpdateStatus(ctx context.Context, id string, status model.InquiryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	inquiry.Status = status
	return nil
}

func (r *fakeInquiryRepo) SetRead(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	inquiry.IsRead = true
	if inquiry.ReadAt == nil {
		inquiry.ReadAt = &at
	}
	return nil
}

func (r *fakeInquiryRepo) SetReplied(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	inquiry.IsReplied = true
	if inquiry.RepliedAt == nil {
		inquiry.RepliedAt = &at
	}
	inquiry.IsRead = true
	if inquiry.ReadAt == nil {
		inquiry.ReadAt = &at
	}
	return nil
}

func (r *fakeInquiryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inquiries[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.inquiries, id)
	delete(r.items, id)
	return nil
}

func (r *fakeInquiryRepo) Stats(ctx context.Context) (*model.InquiryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.InquiryStats{
		ByStatus: make(map[model.InquiryStatus]int64),
		ByType:   make(map[model.InquiryType]int64),
	}
	for _, inquiry := range r.inquiries {
		stats.Total++
		if !inquiry.IsRead {
			stats.Unread++
		}
		if !inquiry.IsReplied {
			stats.Unreplied++
		}
		stats.ByStatus[inquiry.Status]++
		stats.ByType[inquiry.Type]++
	}
	return stats, nil
}

var _ repository.InquiryRepository = (*fakeInquiryRepo)(nil)

// captureAudit records entries synchronously for assertions.
type captureAudit struct {
	mu      sync.Mutex
	entries []model.AuditLogEntry
}

func (a *captureAudit) Record(entry model.AuditLogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *captureAudit) byAction(action model.AuditAction) []model.AuditLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.AuditLogEntry
	for _, e := range a.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func newTestInquiryService(repo repository.InquiryRepository) (*InquiryService, *captureAudit) {
	audit := &captureAudit{}
	metrics := NewMetricsService(nil, zap.NewNop())
	svc := NewInquiryService(repo, cache.NewMemoryCache(), audit, metrics, zap.NewNop())
	return svc, audit
}

func validInput() CreateInquiryInput {
	return CreateInquiryInput{
		CustomerName:  "Mara Jensen",
		CustomerEmail: "mara@example.com",
		Type:          model.InquiryTypeProduct,
		Items: []InquiryItemInput{
			{ProductID: "p1", ProductName: "Free Range Eggs", Quantity: 3, UnitPrice: 100},
			{ProductID: "p2", ProductName: "Raw Honey", Quantity: 2, UnitPrice: 50},
		},
	}
}

func TestInquiryCreateComputesTotals(t *testing.T) {
	svc, audit := newTestInquiryService(newFakeInquiryRepo())

	inquiry, err := svc.Create(context.Background(), validInput(), RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, inquiry.Status)
	assert.Equal(t, 400.0, inquiry.TotalEstimated)
	require.Len(t, inquiry.Items, 2)
	assert.Equal(t, 300.0, inquiry.Items[0].TotalPrice)
	assert.Equal(t, 100.0, inquiry.Items[1].TotalPrice)
	assert.NotEmpty(t, inquiry.ID)
	assert.Equal(t, inquiry.ID, inquiry.Items[0].InquiryID)

	created := audit.byAction(model.AuditActionCreate)
	require.Len(t, created, 1)
	assert.Equal(t, inquiry.ID, created[0].ResourceID)
	assert.Equal(t, "10.0.0.1", created[0].IPAddress)
	assert.NotNil(t, created[0].After)
}

func TestInquiryCreateValidation(t *testing.T) {
	svc, _ := newTestInquiryService(newFakeInquiryRepo())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInquiryInput)
	}{
		{"missing name", func(in *CreateInquiryInput) { in.CustomerName = "" }},
		{"bad email", func(in *CreateInquiryInput) { in.CustomerEmail = "not-an-email" }},
		{"no items", func(in *CreateInquiryInput) { in.Items = nil }},
		{"zero quantity", func(in *CreateInquiryInput) { in.Items[0].Quantity = 0 }},
		{"unknown type", func(in *CreateInquiryInput) { in.Type = "wholesale" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := svc.Create(ctx, input, RequestMeta{})
			require.Error(t, err)
			var apiErr *apierror.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
		})
	}
}

func TestInquiryCreateFarmTourNeedsDate(t *testing.T) {
	svc, _ := newTestInquiryService(newFakeInquiryRepo())

	input := validInput()
	input.Type = model.InquiryTypeFarmTour

	_, err := svc.Create(context.Background(), input, RequestMeta{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preferred date")

	date := time.Now().Add(72 * time.Hour)
	input.PreferredDate = &date
	_, err = svc.Create(context.Background(), input, RequestMeta{})
	assert.NoError(t, err)
}

func TestInquiryUpdateStatus(t *testing.T) {
	repo := newFakeInquiryRepo()
	svc, audit := newTestInquiryService(repo)
	ctx := context.Background()

	inquiry, err := svc.Create(ctx, validInput(), RequestMeta{})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, inquiry.ID, model.StatusQuoted, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusQuoted, updated.Status)

	changes := audit.byAction(model.AuditActionStatusChange)
	require.Len(t, changes, 1)
	assert.JSONEq(t, `{"status":"pending"}`, string(changes[0].Before))
	assert.JSONEq(t, `{"status":"quoted"}`, string(changes[0].After))
}

func TestInquiryUpdateStatusRejectsSkips(t *testing.T) {
	repo := newFakeInquiryRepo()
	svc, _ := newTestInquiryService(repo)
	ctx := context.Background()

	inquiry, err := svc.Create(ctx, validInput(), RequestMeta{})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, inquiry.ID, model.StatusCompleted, RequestMeta{})
	require.Error(t, err)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INVALID_TRANSITION", apiErr.Code)
	assert.True(t, apiErr.IsTransition())
	assert.Contains(t, apiErr.Message, `"pending"`)
	assert.Contains(t, apiErr.Message, `"completed"`)

	// Stored status is untouched by the rejected transition.
	stored, err := repo.GetByID(ctx, inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestInquiryTerminalStatesAreLocked(t *testing.T) {
	repo := newFakeInquiryRepo()
	svc, _ := newTestInquiryService(repo)
	ctx := context.Background()

	inquiry, err := svc.Create(ctx, validInput(), RequestMeta{})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, inquiry.ID, model.StatusCancelled, RequestMeta{})
	require.NoError(t, err)

	for _, next := range []model.InquiryStatus{
		model.StatusPending, model.StatusQuoted, model.StatusConfirmed, model.StatusCompleted,
	} {
		_, err := svc.UpdateStatus(ctx, inquiry.ID, next, RequestMeta{})
		require.Error(t, err, string(next))
		var apiErr *apierror.Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "INVALID_TRANSITION", apiErr.Code)
	}
}

func TestInquiryUpdateStatusUnknownValues(t *testing.T) {
	svc, _ := newTestInquiryService(newFakeInquiryRepo())
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, "whatever", model.InquiryStatus("archived"), RequestMeta{})
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

	_, err = svc.UpdateStatus(ctx, "missing", model.StatusQuoted, RequestMeta{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestInquiryMarkRepliedImpliesRead(t *testing.T) {
	repo := newFakeInquiryRepo()
	svc, _ := newTestInquiryService(repo)
	ctx := context.Background()

	inquiry, err := svc.Create(ctx, validInput(), RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.MarkReplied(ctx, inquiry.ID, RequestMeta{}))

	stored, err := repo.GetByID(ctx, inquiry.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsReplied)
	assert.True(t, stored.IsRead)
	require.NotNil(t, stored.ReadAt)
	firstRead := *stored.ReadAt

	// Second call keeps the original read timestamp.
	require.NoError(t, svc.MarkReplied(ctx, inquiry.ID, RequestMeta{}))
	stored, err = repo.GetByID(ctx, inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, firstRead, *stored.ReadAt)
}

func TestInquiryDeleteRemovesItems(t *testing.T) {
	repo := newFakeInquiryRepo()
	svc, audit := newTestInquiryService(repo)
	ctx := context.Background()

	inquiry, err := svc.Create(ctx, validInput(), RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, inquiry.ID, RequestMeta{}))

	_, err = repo.GetByID(ctx, inquiry.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, repo.items[inquiry.ID])

	deleted := audit.byAction(model.AuditActionDelete)
	require.Len(t, deleted, 1)
	assert.NotNil(t, deleted[0].Before)
}

func TestInquiryStatsCachedUntilInvalidated(t *testing.T) {
	repo := newFakeInquiryRepo()
	svc, _ := newTestInquiryService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput(), RequestMeta{})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)

	// Another submission invalidates the inquiries tag, so the next read
	// recomputes instead of serving the stale aggregate.
	_, err = svc.Create(ctx, validInput(), RequestMeta{})
	require.NoError(t, err)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
}

func TestInquiryCreateRepoFailure(t *testing.T) {
	repo := newFakeInquiryRepo()
	repo.failWith = errors.New("disk full")
	svc, audit := newTestInquiryService(repo)

	_, err := svc.Create(context.Background(), validInput(), RequestMeta{})
	require.Error(t, err)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
	assert.Empty(t, audit.byAction(model.AuditActionCreate))
}
