package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/restocklabs/restock-dispatch/internal/adapter/handler"
	"github.com/restocklabs/restock-dispatch/internal/adapter/notifier"
	"github.com/restocklabs/restock-dispatch/internal/adapter/storage"
	"github.com/restocklabs/restock-dispatch/internal/config"
	"github.com/restocklabs/restock-dispatch/internal/core/domain"
	"github.com/restocklabs/restock-dispatch/internal/core/service"
	"github.com/restocklabs/restock-dispatch/internal/obs"
	"github.com/restocklabs/restock-dispatch/internal/ratelimit"
)

func main() {
	obs.InitLogger(slog.LevelInfo)
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build storage backend: %v", err)
	}
	defer cleanup()

	limiter := ratelimit.New(cfg.RateLimitPerSecond)
	engine := service.NewEngine(stores, notifier.NewLogNotifier(), limiter, service.Options{
		Workers:          cfg.DispatchWorkers,
		RatePollInterval: cfg.RatePollInterval,
	})

	mux := http.NewServeMux()
	handler.NewHTTPHandler(engine, stores.Stock).Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		obs.Logger.Info("http server listening", "addr", cfg.HTTPAddr, "backend", cfg.StorageBackend)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			obs.Logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	obs.Logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		obs.Logger.Error("http shutdown error", "error", err)
	}
	obs.Logger.Info("http server stopped")
}

// buildStores wires the persistence layer for the configured backend. The
// memory backend seeds a demo catalog; the mysql backend can front its
// stock ledger with Redis when REDIS_ADDR is set.
func buildStores(ctx context.Context, cfg config.Config) (service.Stores, func(), error) {
	if cfg.StorageBackend == config.BackendMemory {
		mem := storage.NewMemoryAdapter()
		seedDemoData(mem)
		return service.Stores{
			Catalog:       mem,
			Stock:         mem,
			Subscriptions: mem,
			Runs:          mem,
			Deliveries:    mem,
		}, func() {}, nil
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return service.Stores{}, nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return service.Stores{}, nil, err
	}
	obs.Logger.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	stores := service.Stores{
		Catalog:       mysqlAdapter,
		Stock:         mysqlAdapter,
		Subscriptions: mysqlAdapter,
		Runs:          mysqlAdapter,
		Deliveries:    mysqlAdapter,
	}
	cleanup := func() { db.Close() }

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			db.Close()
			return service.Stores{}, nil, err
		}
		obs.Logger.Info("connected to redis, stock ledger fronted by redis")

		// Counters are synced from product_stock by ops tooling or the
		// replenishment endpoint; the server does not bulk-load them.
		stores.Stock = storage.NewRedisAdapter(rdb)
		cleanup = func() {
			rdb.Close()
			db.Close()
		}
	}

	return stores, cleanup, nil
}

func seedDemoData(mem *storage.MemoryAdapter) {
	const productID = 1
	mem.SeedProduct(domain.Product{ID: productID})
	mem.SeedStock(productID, 100)
	for userID := int64(1); userID <= 10; userID++ {
		mem.SeedSubscription(domain.Subscription{
			ID:        userID,
			ProductID: productID,
			UserID:    userID,
			Active:    true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	}
	obs.Logger.Info("memory backend seeded", "product_id", productID, "stock", 100, "subscribers", 10)
}
