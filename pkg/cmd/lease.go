package cmd

import (
	"fmt"
	"time"

	"github.com/dukex/facilitator/pkg/ticking"
	"github.com/redis/go-redis/v9"
)

// NewLease creates the ticking ownership lease. The returned func releases
// resources held by the lease.
func NewLease(kind, redisURL string, ttl time.Duration) (ticking.Lease, func(), error) {
	switch kind {
	case "local", "":
		return ticking.NewLocalLease(), func() {}, nil
	case "redis":
		options, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid lease redis URL: %w", err)
		}

		client := redis.NewClient(options)

		return ticking.NewRedisLease(client, ticking.DefaultLeaseKey, ttl), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported lease type %q", kind)
	}
}
