package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisDecrement_Success(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, stockKey(8001))
	adapter.SetStock(ctx, 8001, 10)

	ok, err := adapter.DecrementIfAvailable(ctx, 8001, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}

	rec, err := adapter.GetStock(ctx, 8001, false)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Quantity != 7 {
		t.Errorf("expected stock 7, got %d", rec.Quantity)
	}
}

func TestRedisDecrement_Insufficient(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, stockKey(8002))
	adapter.SetStock(ctx, 8002, 5)

	ok, err := adapter.DecrementIfAvailable(ctx, 8002, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected refusal due to insufficient stock")
	}

	rec, _ := adapter.GetStock(ctx, 8002, false)
	if rec.Quantity != 5 {
		t.Errorf("refusal must not mutate, got %d", rec.Quantity)
	}
}

func TestRedisDecrement_MissingKey(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, stockKey(8003))

	ok, err := adapter.DecrementIfAvailable(ctx, 8003, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected refusal for missing key")
	}

	rec, err := adapter.GetStock(ctx, 8003, false)
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("expected nil record for missing key, got %+v", rec)
	}
}

func TestRedisDecrement_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	initialStock := 20
	client.Del(ctx, stockKey(8004))
	adapter.SetStock(ctx, 8004, initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.DecrementIfAvailable(ctx, 8004, 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	rec, _ := adapter.GetStock(ctx, 8004, false)
	if rec.Quantity != 0 {
		t.Errorf("expected stock 0, got %d", rec.Quantity)
	}
}

func TestRedisIncreaseStock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, stockKey(8005))
	adapter.SetStock(ctx, 8005, 5)

	if err := adapter.IncreaseStock(ctx, 8005, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := adapter.GetStock(ctx, 8005, false)
	if rec.Quantity != 8 {
		t.Errorf("expected stock 8, got %d", rec.Quantity)
	}
}
