package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/payment-tracker/internal/domain"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

// CustomerCache stores customers by ID in Redis.
type CustomerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient parses redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

func NewCustomerCache(client *redis.Client, ttl time.Duration) *CustomerCache {
	return &CustomerCache{client: client, ttl: ttl}
}

func CustomerKey(id uuid.UUID) string {
	return fmt.Sprintf("customer:%s", id)
}

func (c *CustomerCache) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	data, err := c.client.Get(ctx, CustomerKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var customer domain.Customer
	if err := json.Unmarshal(data, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *CustomerCache) Set(ctx context.Context, customer *domain.Customer) error {
	data, err := json.Marshal(customer)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CustomerKey(customer.ID), data, c.ttl).Err()
}

func (c *CustomerCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, CustomerKey(id)).Err()
}
