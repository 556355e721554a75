package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"farmgate-api/internal/cache"
	"farmgate-api/internal/model"
	"farmgate-api/internal/repository"
	"farmgate-api/pkg/apierror"
	"farmgate-api/pkg/uid"
)

// ProductReader is the read surface of the catalog. The cached decorator
// implements the same interface as the base service and delegates on miss.
type ProductReader interface {
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int64, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Search(ctx context.Context, query string, limit int) ([]model.Product, error)
}

// ProductService handles catalog reads and admin writes. Writes invalidate
// the products cache tag after commit.
type ProductService struct {
	repo   repository.ProductRepository
	cache  cache.Cache
	audit  AuditRecorder
	logger *zap.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, c cache.Cache, audit AuditRecorder, logger *zap.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		cache:  c,
		audit:  audit,
		logger: logger,
	}
}

// List returns catalog entries matching the filter.
func (s *ProductService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int64, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("product list failed", zap.Error(err))
		return nil, 0, apierror.InternalError("failed to list products")
	}
	return products, total, nil
}

// Get loads one catalog entry.
func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "product")
	}
	return product, nil
}

// Search finds available products.
func (s *ProductService) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	products, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("product search failed", zap.Error(err))
		return nil, apierror.InternalError("failed to search products")
	}
	return products, nil
}

// ProductInput is an admin catalog write.
type ProductInput struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Unit        string  `json:"unit"`
	Stock       int     `json:"stock"`
	IsAvailable bool    `json:"is_available"`
	ImageURL    string  `json:"image_url"`
}

func (in ProductInput) validate() error {
	if in.Name == "" {
		return apierror.ValidationError("product name is required")
	}
	if in.Price < 0 {
		return apierror.ValidationError("product price cannot be negative")
	}
	if in.Stock < 0 {
		return apierror.ValidationError("product stock cannot be negative")
	}
	return nil
}

// Create inserts a catalog entry and invalidates the products tag.
func (s *ProductService) Create(ctx context.Context, input ProductInput, meta RequestMeta) (*model.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &model.Product{
		ID:          uid.New(),
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		Price:       input.Price,
		Unit:        input.Unit,
		Stock:       input.Stock,
		IsAvailable: input.IsAvailable,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("product create failed", zap.Error(err))
		return nil, apierror.InternalError("failed to create product")
	}

	s.invalidateProducts(ctx)

	entry := meta.auditEntry(model.AuditActionCreate, model.AuditResourceProduct, product.ID)
	entry.After = snapshot(product)
	s.audit.Record(entry)

	return product, nil
}

// Update rewrites a catalog entry and invalidates the products tag.
func (s *ProductService) Update(ctx context.Context, id string, input ProductInput, meta RequestMeta) (*model.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "product")
	}

	updated := *existing
	updated.Name = input.Name
	updated.Category = input.Category
	updated.Description = input.Description
	updated.Price = input.Price
	updated.Unit = input.Unit
	updated.Stock = input.Stock
	updated.IsAvailable = input.IsAvailable
	updated.ImageURL = input.ImageURL
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, mapRepoError(err, "product")
	}

	s.invalidateProducts(ctx)

	entry := meta.auditEntry(model.AuditActionUpdate, model.AuditResourceProduct, id)
	entry.Before = snapshot(existing)
	entry.After = snapshot(&updated)
	s.audit.Record(entry)

	return &updated, nil
}

// Delete removes a catalog entry and invalidates the products tag.
func (s *ProductService) Delete(ctx context.Context, id string, meta RequestMeta) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err, "product")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "product")
	}

	s.invalidateProducts(ctx)

	entry := meta.auditEntry(model.AuditActionDelete, model.AuditResourceProduct, id)
	entry.Before = snapshot(existing)
	s.audit.Record(entry)

	return nil
}

func (s *ProductService) invalidateProducts(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.TagProducts); err != nil {
		s.logger.Warn("product cache invalidation failed", zap.Error(err))
	}
}

var _ ProductReader = (*ProductService)(nil)

// cachedProductList is the cache envelope for list results.
type cachedProductList struct {
	Products []model.Product `json:"products"`
	Total    int64           `json:"total"`
}

// CachedProductReader decorates a ProductReader with the tag-aware cache.
// Any cache failure is treated as a miss: the request always proceeds to
// the underlying reader and never fails because of the cache.
type CachedProductReader struct {
	base   ProductReader
	cache  cache.Cache
	logger *zap.Logger
}

// NewCachedProductReader wraps a reader with caching.
func NewCachedProductReader(base ProductReader, c cache.Cache, logger *zap.Logger) *CachedProductReader {
	return &CachedProductReader{
		base:   base,
		cache:  c,
		logger: logger,
	}
}

// List serves list reads from cache when possible.
func (r *CachedProductReader) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int64, error) {
	key := fmt.Sprintf("products:list:%s:%t:%s:%d:%d",
		filter.Category, filter.AvailableOnly, filter.Search, filter.Page, filter.Limit)

	if data, ok := r.lookup(ctx, key); ok {
		var cached cachedProductList
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.Products, cached.Total, nil
		}
	}

	products, total, err := r.base.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	r.store(ctx, key, cachedProductList{Products: products, Total: total}, cache.ListTTL)
	return products, total, nil
}

// Get serves single-item reads from cache when possible.
func (r *CachedProductReader) Get(ctx context.Context, id string) (*model.Product, error) {
	key := "products:item:" + id

	if data, ok := r.lookup(ctx, key); ok {
		var product model.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
	}

	product, err := r.base.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, product, cache.ItemTTL)
	return product, nil
}

// Search serves search reads from cache when possible.
func (r *CachedProductReader) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	key := fmt.Sprintf("products:search:%s:%d", query, limit)

	if data, ok := r.lookup(ctx, key); ok {
		var products []model.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
	}

	products, err := r.base.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, products, cache.SearchTTL)
	return products, nil
}

// lookup reads the cache, downgrading any error to a miss.
func (r *CachedProductReader) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// store writes the cache, downgrading any error to a log line.
func (r *CachedProductReader) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, ttl, cache.TagProducts); err != nil {
		r.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
}

var _ ProductReader = (*CachedProductReader)(nil)

// LocationService serves farm tour venues, cached under the locations tag.
type LocationService struct {
	repo   repository.LocationRepository
	cache  cache.Cache
	logger *zap.Logger
}

// NewLocationService creates a new location service.
func NewLocationService(repo repository.LocationRepository, c cache.Cache, logger *zap.Logger) *LocationService {
	return &LocationService{repo: repo, cache: c, logger: logger}
}

// ListActive returns active venues, served from cache when possible.
func (s *LocationService) ListActive(ctx context.Context) ([]model.Location, error) {
	const key = "locations:active"

	if data, err := s.cache.Get(ctx, key); err == nil {
		var locations []model.Location
		if err := json.Unmarshal(data, &locations); err == nil {
			return locations, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("location cache read failed", zap.Error(err))
	}

	locations, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("location list failed", zap.Error(err))
		return nil, apierror.InternalError("failed to list locations")
	}

	if data, err := json.Marshal(locations); err == nil {
		if err := s.cache.Set(ctx, key, data, cache.ListTTL, cache.TagLocations); err != nil {
			s.logger.Warn("location cache write failed", zap.Error(err))
		}
	}

	return locations, nil
}
