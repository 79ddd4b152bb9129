package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	redisOnce      sync.Once
	redisContainer *tcredis.RedisContainer
	redisOptions   *redis.Options
	redisStartErr  error
	redisWG        sync.WaitGroup
)

// UseRedis provisions or reuses a Redis container and returns a client for
// it. Streams are shared across tests, so use a unique stream name per test.
func UseRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	redisOnce.Do(func() {
		ctx := context.Background()
		redisContainer, redisStartErr = tcredis.Run(ctx, "redis:7")
		if redisStartErr != nil {
			return
		}
		var connStr string
		connStr, redisStartErr = redisContainer.ConnectionString(ctx)
		if redisStartErr != nil {
			return
		}
		redisOptions, redisStartErr = redis.ParseURL(connStr)
	})

	if redisStartErr != nil {
		t.Fatalf("failed to start redis container: %v", redisStartErr)
	}
	redisWG.Add(1)
	t.Cleanup(redisWG.Done)

	client := redis.NewClient(redisOptions)
	t.Cleanup(func() { client.Close() })
	return client
}

func TerminateRedisForE2E() {
	redisWG.Wait()
	if redisContainer != nil {
		err := redisContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}
