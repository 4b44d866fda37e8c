package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agroweb-products/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const productCachePrefix = "product:"

// cachedProductRepository puts a Redis read-through cache in front of single
// product lookups. Any write to a product evicts its entry.
type cachedProductRepository struct {
	ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProductRepository wraps inner. Redis failures are logged and the
// call falls through to inner.
func NewCachedProductRepository(inner ProductRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) ProductRepository {
	return &cachedProductRepository{
		ProductRepository: inner,
		client:            client,
		ttl:               ttl,
		logger:            logger,
	}
}

func (r *cachedProductRepository) GetProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	key := productCachePrefix + productID

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product domain.Product
		if jsonErr := json.Unmarshal(data, &product); jsonErr == nil {
			return &product, nil
		}
		r.evict(ctx, productID)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("Product cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := r.ProductRepository.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(product)
	if err != nil {
		return product, nil
	}
	if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
		r.logger.Warn("Product cache write failed", zap.String("key", key), zap.Error(err))
	}
	return product, nil
}

func (r *cachedProductRepository) UpdateImageURL(ctx context.Context, productID, imageURL string) error {
	defer r.evict(ctx, productID)
	return r.ProductRepository.UpdateImageURL(ctx, productID, imageURL)
}

func (r *cachedProductRepository) DeactivateProduct(ctx context.Context, productID string) error {
	defer r.evict(ctx, productID)
	return r.ProductRepository.DeactivateProduct(ctx, productID)
}

func (r *cachedProductRepository) DeleteProduct(ctx context.Context, productID string) (bool, error) {
	defer r.evict(ctx, productID)
	return r.ProductRepository.DeleteProduct(ctx, productID)
}

func (r *cachedProductRepository) ClearTestData(ctx context.Context) (int, error) {
	n, err := r.ProductRepository.ClearTestData(ctx)

	iter := r.client.Scan(ctx, 0, productCachePrefix+TestDataPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if delErr := r.client.Del(ctx, iter.Val()).Err(); delErr != nil {
			r.logger.Warn("Product cache eviction failed", zap.String("key", iter.Val()), zap.Error(delErr))
		}
	}
	if scanErr := iter.Err(); scanErr != nil {
		r.logger.Warn("Product cache scan failed", zap.Error(scanErr))
	}

	return n, err
}

func (r *cachedProductRepository) evict(ctx context.Context, productID string) {
	key := productCachePrefix + productID
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("Product cache eviction failed", zap.String("key", key), zap.Error(err))
	}
}
