// Package sentiment reads the externally computed market sentiment score.
// An upstream pipeline publishes a [0,100] composite per asset to Redis; the
// scorer treats a missing score as no sentiment input at all.
package sentiment

import (
	"context"
	"fmt"
	"strconv"

	redis "github.com/go-redis/redis/v8"

	redisAdapter "github.com/altradar/signals/internal/adapters/redis"
)

const keyPrefix = "sentiment:"

// Provider reads per-asset sentiment scores from Redis
type Provider struct {
	cache *redisAdapter.Client
}

// NewProvider creates new sentiment provider
func NewProvider(cache *redisAdapter.Client) *Provider {
	return &Provider{cache: cache}
}

// Sentiment returns the published score for an asset, nil when none exists
func (p *Provider) Sentiment(ctx context.Context, asset string) (*float64, error) {
	raw, err := p.cache.Get(ctx, keyPrefix+asset).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sentiment: %w", err)
	}

	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed sentiment score %q: %w", raw, err)
	}
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("sentiment score out of range: %.2f", score)
	}

	return &score, nil
}
