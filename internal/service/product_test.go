package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"farmgate-api/internal/cache"
	"farmgate-api/internal/model"
)

// stubProductReader counts how often each read path hits the base layer.
type stubProductReader struct {
	listCalls   int
	getCalls    int
	searchCalls int
	product     model.Product
}

func (s *stubProductReader) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int64, error) {
	s.listCalls++
	return []model.Product{s.product}, 1, nil
}

func (s *stubProductReader) Get(ctx context.Context, id string) (*model.Product, error) {
	s.getCalls++
	p := s.product
	return &p, nil
}

func (s *stubProductReader) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	s.searchCalls++
	return []model.Product{s.product}, nil
}

// brokenCache fails every operation, simulating an unreachable backend.
type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(ctx context.Context, key string) error { return errors.New("connection refused") }

func (brokenCache) Invalidate(ctx context.Context, tags ...string) error {
	return errors.New("connection refused")
}

func (brokenCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, tags []string, fn func() ([]byte, error)) ([]byte, error) {
	return fn()
}

func (brokenCache) Clear(ctx context.Context) error { return errors.New("connection refused") }

var _ cache.Cache = brokenCache{}

func sampleProduct() model.Product {
	return model.Product{
		ID:          "p1",
		Name:        "Free Range Eggs",
		Category:    "dairy-eggs",
		Price:       4.5,
		Unit:        "dozen",
		Stock:       120,
		IsAvailable: true,
	}
}

func TestCachedReaderServesFromCache(t *testing.T) {
	base := &stubProductReader{product: sampleProduct()}
	c := cache.NewMemoryCache()
	defer c.Close()
	reader := NewCachedProductReader(base, c, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		product, err := reader.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Free Range Eggs", product.Name)
	}
	assert.Equal(t, 1, base.getCalls)

	for i := 0; i < 3; i++ {
		products, total, err := reader.List(ctx, model.ProductFilter{Category: "dairy-eggs"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, products, 1)
	}
	assert.Equal(t, 1, base.listCalls)

	for i := 0; i < 3; i++ {
		products, err := reader.Search(ctx, "eggs", 10)
		require.NoError(t, err)
		require.Len(t, products, 1)
	}
	assert.Equal(t, 1, base.searchCalls)
}

func TestCachedReaderKeysVaryByFilter(t *testing.T) {
	base := &stubProductReader{product: sampleProduct()}
	c := cache.NewMemoryCache()
	defer c.Close()
	reader := NewCachedProductReader(base, c, zap.NewNop())
	ctx := context.Background()

	_, _, err := reader.List(ctx, model.ProductFilter{Category: "dairy-eggs"})
	require.NoError(t, err)
	_, _, err = reader.List(ctx, model.ProductFilter{Category: "produce"})
	require.NoError(t, err)

	assert.Equal(t, 2, base.listCalls)
}

func TestCachedReaderFallsBackWhenCacheFails(t *testing.T) {
	base := &stubProductReader{product: sampleProduct()}
	reader := NewCachedProductReader(base, brokenCache{}, zap.NewNop())
	ctx := context.Background()

	// Every read reaches the base layer, and none of them error out.
	for i := 0; i < 2; i++ {
		product, err := reader.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", product.ID)
	}
	assert.Equal(t, 2, base.getCalls)

	_, _, err := reader.List(ctx, model.ProductFilter{})
	require.NoError(t, err)
	_, err = reader.Search(ctx, "eggs", 5)
	require.NoError(t, err)
}

func TestCachedReaderInvalidatedByTag(t *testing.T) {
	base := &stubProductReader{product: sampleProduct()}
	c := cache.NewMemoryCache()
	defer c.Close()
	reader := NewCachedProductReader(base, c, zap.NewNop())
	ctx := context.Background()

	_, err := reader.Get(ctx, "p1")
	require.NoError(t, err)
	_, err = reader.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, base.getCalls)

	// An admin write invalidates the products tag; the next read recomputes.
	require.NoError(t, c.Invalidate(ctx, cache.TagProducts))

	_, err = reader.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, base.getCalls)
}

func TestProductInputValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   ProductInput
		wantErr string
	}{
		{"missing name", ProductInput{Price: 1}, "name is required"},
		{"negative price", ProductInput{Name: "Eggs", Price: -1}, "cannot be negative"},
		{"negative stock", ProductInput{Name: "Eggs", Price: 1, Stock: -5}, "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, ProductInput{Name: "Eggs", Price: 4.5}.validate())
}
