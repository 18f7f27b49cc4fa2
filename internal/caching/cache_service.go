package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const keyPrefix = "storefront"

type CacheService interface {
	// Idempotency replay: key -> committed order id
	GetOrderIDForKey(ctx context.Context, idempotencyKey string) (uuid.UUID, bool, error)
	SetOrderIDForKey(ctx context.Context, idempotencyKey string, orderID uuid.UUID) error

	// Product caching
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, productID uuid.UUID) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
}

// ParseAddr strips a redis:// or rediss:// scheme from addr.
func ParseAddr(addr string) string {
	for _, scheme := range []string{"redis://", "rediss://"} {
		if strings.HasPrefix(addr, scheme) {
			return strings.TrimPrefix(addr, scheme)
		}
	}
	return addr
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     ParseAddr(addr),
		Password: password,
		DB:       db,
	})
}

// NewRedisCacheService wraps client with a circuit breaker. ttl applies to product entries only.
func NewRedisCacheService(client *redis.Client, ttl time.Duration) CacheService {
	return &redisCacheService{
		client:  client,
		breaker: newBreaker("redis-cache"),
		ttl:     ttl,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Cache misses are normal traffic
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(state)

			log.WithFields(log.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

func (r *redisCacheService) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.breaker.Execute(fn)
	if err != nil && !errors.Is(err, redis.Nil) {
		metrics.CircuitBreakerFailures.WithLabelValues(r.breaker.Name()).Inc()
	}
	return result, err
}

func orderKey(idempotencyKey string) string {
	return fmt.Sprintf("%s:idempotency:%s", keyPrefix, idempotencyKey)
}

func productKey(productID uuid.UUID) string {
	return fmt.Sprintf("%s:product:%s", keyPrefix, productID.String())
}

func (r *redisCacheService) GetOrderIDForKey(ctx context.Context, idempotencyKey string) (uuid.UUID, bool, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.client.Get(ctx, orderKey(idempotencyKey)).Result()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil // cache miss
		}
		return uuid.Nil, false, err
	}

	id, err := uuid.Parse(result.(string))
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("cached order id for key %q: %w", idempotencyKey, err)
	}
	return id, true, nil
}

// SetOrderIDForKey stores the mapping without expiry. A committed key never points elsewhere.
func (r *redisCacheService) SetOrderIDForKey(ctx context.Context, idempotencyKey string, orderID uuid.UUID) error {
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, orderKey(idempotencyKey), orderID.String(), 0).Err()
	})
	return err
}

func (r *redisCacheService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.client.Get(ctx, productKey(productID)).Bytes()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(result.([]byte), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *redisCacheService) SetProduct(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	_, err = r.execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, productKey(product.ID), data, r.ttl).Err()
	})
	return err
}

func (r *redisCacheService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, productKey(productID)).Err()
	})
	return err
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
