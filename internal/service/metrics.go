package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Business metric counters.
const (
	MetricInquiriesCreated  = "inquiries_created"
	MetricProductInquiries  = "product_inquiries"
	MetricFarmTourInquiries = "farm_tour_inquiries"
	MetricStatusChanges     = "status_changes"
	MetricCSPReports        = "csp_reports"
	MetricRateLimited       = "rate_limited"
)

const metricsHashKey = "farmgate:metrics"

// MetricsService counts business events. Counters live in a Redis hash so
// they survive restarts and aggregate across instances; without Redis they
// fall back to an in-process map.
type MetricsService struct {
	redis  *redis.Client
	logger *zap.Logger

	mu       sync.Mutex
	fallback map[string]int64
}

// NewMetricsService creates a metrics service. redisClient may be nil.
func NewMetricsService(redisClient *redis.Client, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		redis:    redisClient,
		logger:   logger,
		fallback: make(map[string]int64),
	}
}

// Incr bumps a counter. Counting failures are logged and swallowed;
// metrics never affect the operation being counted.
func (s *MetricsService) Incr(ctx context.Context, name string) {
	if s == nil {
		return
	}

	if s.redis != nil {
		if err := s.redis.HIncrBy(ctx, metricsHashKey, name, 1).Err(); err != nil {
			s.logger.Warn("metric increment failed", zap.String("metric", name), zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	s.fallback[name]++
	s.mu.Unlock()
}

// Snapshot returns all counters.
func (s *MetricsService) Snapshot(ctx context.Context) (map[string]int64, error) {
	if s.redis != nil {
		raw, err := s.redis.HGetAll(ctx, metricsHashKey).Result()
		if err != nil {
			return nil, err
		}
		counters := make(map[string]int64, len(raw))
		for name, value := range raw {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			counters[name] = n
		}
		return counters, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	counters := make(map[string]int64, len(s.fallback))
	for name, value := range s.fallback {
		counters[name] = value
	}
	return counters, nil
}
