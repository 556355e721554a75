package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"farmgate-api/internal/cache"
	"farmgate-api/internal/model"
	"farmgate-api/internal/repository"
	"farmgate-api/pkg/apierror"
	"farmgate-api/pkg/uid"
)

// InquiryService handles the inquiry lifecycle: submission, status
// transitions, read/reply marking and deletion. Every mutation emits an
// audit entry and invalidates the inquiry cache tag after commit.
type InquiryService struct {
	repo     repository.InquiryRepository
	cache    cache.Cache
	audit    AuditRecorder
	metrics  *MetricsService
	logger   *zap.Logger
	validate *validator.Validate
}

// NewInquiryService creates a new inquiry service.
func NewInquiryService(
	repo repository.InquiryRepository,
	c cache.Cache,
	audit AuditRecorder,
	metrics *MetricsService,
	logger *zap.Logger,
) *InquiryService {
	return &InquiryService{
		repo:     repo,
		cache:    c,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
		validate: validator.New(),
	}
}

// CreateInquiryInput is a customer-facing submission.
type CreateInquiryInput struct {
	CustomerName    string             `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerEmail   string             `json:"customer_email" validate:"required,email"`
	CustomerPhone   string             `json:"customer_phone" validate:"max=30"`
	Type            model.InquiryType  `json:"type" validate:"required"`
	DeliveryAddress string             `json:"delivery_address" validate:"max=500"`
	PreferredDate   *time.Time         `json:"preferred_date"`
	Notes           string             `json:"notes" validate:"max=2000"`
	Items           []InquiryItemInput `json:"items" validate:"required,min=1,dive"`
}

// InquiryItemInput is one requested product line.
type InquiryItemInput struct {
	ProductID   string  `json:"product_id" validate:"required"`
	ProductName string  `json:"product_name" validate:"required,max=200"`
	Category    string  `json:"category" validate:"max=100"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

// Create validates and persists a new inquiry with its items.
func (s *InquiryService) Create(ctx context.Context, input CreateInquiryInput, meta RequestMeta) (*model.Inquiry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apierror.ValidationError(validationMessage(err))
	}
	if !input.Type.IsValid() {
		return nil, apierror.ValidationError(fmt.Sprintf("unknown inquiry type %q", input.Type))
	}
	if input.Type == model.InquiryTypeFarmTour && input.PreferredDate == nil {
		return nil, apierror.ValidationError("farm tour inquiries require a preferred date")
	}

	now := time.Now().UTC()
	inquiry := &model.Inquiry{
		ID:              uid.New(),
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		Type:            input.Type,
		Status:          model.StatusPending,
		DeliveryAddress: input.DeliveryAddress,
		PreferredDate:   input.PreferredDate,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]model.InquiryItem, len(input.Items))
	for i, item := range input.Items {
		total := float64(item.Quantity) * item.UnitPrice
		items[i] = model.InquiryItem{
			ID:          uid.New(),
			InquiryID:   inquiry.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Category:    item.Category,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  total,
		}
		inquiry.TotalEstimated += total
	}

	if err := s.repo.Create(ctx, inquiry, items); err != nil {
		s.logger.Error("inquiry create failed", zap.Error(err))
		return nil, apierror.InternalError("failed to create inquiry")
	}
	inquiry.Items = items

	s.invalidateAfterCommit(ctx)

	entry := meta.auditEntry(model.AuditActionCreate, model.AuditResourceInquiry, inquiry.ID)
	entry.After = snapshot(inquiry)
	s.audit.Record(entry)

	s.metrics.Incr(ctx, MetricInquiriesCreated)
	if inquiry.Type == model.InquiryTypeProduct {
		s.metrics.Incr(ctx, MetricProductInquiries)
	} else {
		s.metrics.Incr(ctx, MetricFarmTourInquiries)
	}

	s.logger.Info("inquiry created",
		zap.String("inquiry_id", inquiry.ID),
		zap.String("type", string(inquiry.Type)),
		zap.Int("items", len(items)),
		zap.Float64("total_estimated", inquiry.TotalEstimated))

	return inquiry, nil
}

// Get loads one inquiry with items.
func (s *InquiryService) Get(ctx context.Context, id string, meta RequestMeta) (*model.Inquiry, error) {
	inquiry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "inquiry")
	}

	s.audit.Record(meta.auditEntry(model.AuditActionView, model.AuditResourceInquiry, id))
	return inquiry, nil
}

// List returns inquiries matching the filter.
func (s *InquiryService) List(ctx context.Context, filter model.InquiryFilter, meta RequestMeta) ([]model.Inquiry, int64, error) {
	inquiries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("inquiry list failed", zap.Error(err))
		return nil, 0, apierror.InternalError("failed to list inquiries")
	}

	s.audit.Record(meta.auditEntry(model.AuditActionViewList, model.AuditResourceInquiry, ""))
	return inquiries, total, nil
}

// UpdateStatus moves an inquiry along the status graph. Illegal transitions
// return an INVALID_TRANSITION error and leave the stored status unchanged.
func (s *InquiryService) UpdateStatus(ctx context.Context, id string, next model.InquiryStatus, meta RequestMeta) (*model.Inquiry, error) {
	if !next.IsValid() {
		return nil, apierror.ValidationError(fmt.Sprintf("unknown status %q", next))
	}

	inquiry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "inquiry")
	}

	if !inquiry.Status.CanTransitionTo(next) {
		return nil, apierror.InvalidTransition(string(inquiry.Status), string(next))
	}

	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, mapRepoError(err, "inquiry")
	}

	entry := meta.auditEntry(model.AuditActionStatusChange, model.AuditResourceInquiry, id)
	entry.Before = snapshot(map[string]model.InquiryStatus{"status": inquiry.Status})
	entry.After = snapshot(map[string]model.InquiryStatus{"status": next})
	s.audit.Record(entry)

	s.metrics.Incr(ctx, MetricStatusChanges)
	s.invalidateAfterCommit(ctx)

	s.logger.Info("inquiry status changed",
		zap.String("inquiry_id", id),
		zap.String("from", string(inquiry.Status)),
		zap.String("to", string(next)))

	inquiry.Status = next
	inquiry.UpdatedAt = time.Now().UTC()
	return inquiry, nil
}

// MarkRead flags the inquiry as read. Idempotent.
func (s *InquiryService) MarkRead(ctx context.Context, id string, meta RequestMeta) error {
	if err := s.repo.SetRead(ctx, id, time.Now().UTC()); err != nil {
		return mapRepoError(err, "inquiry")
	}

	entry := meta.auditEntry(model.AuditActionUpdate, model.AuditResourceInquiry, id)
	entry.After = snapshot(map[string]bool{"is_read": true})
	s.audit.Record(entry)

	s.invalidateAfterCommit(ctx)
	return nil
}

// MarkReplied flags the inquiry as replied, which implies read. Idempotent.
func (s *InquiryService) MarkReplied(ctx context.Context, id string, meta RequestMeta) error {
	if err := s.repo.SetReplied(ctx, id, time.Now().UTC()); err != nil {
		return mapRepoError(err, "inquiry")
	}

	entry := meta.auditEntry(model.AuditActionUpdate, model.AuditResourceInquiry, id)
	entry.After = snapshot(map[string]bool{"is_read": true, "is_replied": true})
	s.audit.Record(entry)

	s.invalidateAfterCommit(ctx)
	return nil
}

// Delete removes an inquiry and its items.
func (s *InquiryService) Delete(ctx context.Context, id string, meta RequestMeta) error {
	inquiry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err, "inquiry")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "inquiry")
	}

	entry := meta.auditEntry(model.AuditActionDelete, model.AuditResourceInquiry, id)
	entry.Before = snapshot(inquiry)
	s.audit.Record(entry)

	s.invalidateAfterCommit(ctx)

	s.logger.Info("inquiry deleted", zap.String("inquiry_id", id))
	return nil
}

// Stats returns inbox aggregates, cached briefly under the inquiries tag.
func (s *InquiryService) Stats(ctx context.Context) (*model.InquiryStats, error) {
	const key = "inquiries:stats"

	if data, err := s.cache.Get(ctx, key); err == nil {
		var stats model.InquiryStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("stats cache read failed", zap.Error(err))
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.logger.Error("inquiry stats failed", zap.Error(err))
		return nil, apierror.InternalError("failed to compute inquiry stats")
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, data, cache.StatsTTL, cache.TagInquiries); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}

	return stats, nil
}

// invalidateAfterCommit drops inquiry-tagged cache entries. Runs after the
// store write has committed; a failed invalidation is logged and left to
// TTL expiry.
func (s *InquiryService) invalidateAfterCommit(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.TagInquiries); err != nil {
		s.logger.Warn("inquiry cache invalidation failed", zap.Error(err))
	}
}

// mapRepoError translates repository errors into the API taxonomy.
func mapRepoError(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.NotFound(resource + " not found")
	}
	return apierror.InternalError("")
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return fmt.Sprintf("field %q failed on the %q rule", first.Field(), first.Tag())
	}
	return err.Error()
}
