package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifycore/pkg/redis"
)

func TestConnect_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     redis.Config
		wantErr error
	}{
		{name: "empty url", cfg: redis.Config{}, wantErr: redis.ErrEmptyConnectionURL},
		{name: "bad scheme", cfg: redis.Config{ConnectionURL: "http://localhost"}, wantErr: redis.ErrFailedToParseRedisConnString},
		{
			name: "unreachable",
			cfg: redis.Config{
				ConnectionURL:  "redis://127.0.0.1:1/0",
				RetryAttempts:  1,
				RetryInterval:  time.Millisecond,
				ConnectTimeout: time.Second,
			},
			wantErr: redis.ErrRedisNotReady,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := redis.Connect(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
