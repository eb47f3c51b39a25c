// Command worker runs a fixed pool of background job executors
// consuming the verification queue (task_prefetch=1 per
// worker, a fixed number of worker processes/goroutines running
// concurrently).
//
// Grounded on the teacher's signal-handling/graceful-shutdown idiom
// (services/verifier/main.go) and on golang.org/x/sync/errgroup for
// the worker pool — the same concurrency primitive the teacher's
// go.mod already pulls in indirectly via its other dependencies' use
// across the pack (forgedlabs-mail_sorter itself has no worker pool;
// this fans its single-verifier-loop idea out to N goroutines).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/mailverify/internal/config"
	"github.com/yourusername/mailverify/internal/executor"
	"github.com/yourusername/mailverify/internal/jobqueue"
	"github.com/yourusername/mailverify/internal/sentinel"
	"github.com/yourusername/mailverify/internal/store"
	"github.com/yourusername/mailverify/internal/webhook"
)

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		log.Printf("warning: could not load config file, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: 0})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("connected to redis")

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	exec := &executor.Executor{
		Store:    db,
		Queue:    jobqueue.New(rdb),
		Sentinel: sentinel.New(rdb, sentinel.DefaultConfig()),
		Webhook:  webhook.New(cfg.WebhookEndpoint, cfg.WebhookSecret, cfg.WebhookTimeout),
		MailFrom: cfg.MailFrom,
	}

	workerCount := getEnvInt("WORKER_COUNT", 4)
	log.Printf("mailverify worker starting, %d concurrent workers", workerCount)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			exec.Run(gctx)
			return nil
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received, draining workers...")
		cancel()
	}()

	if err := g.Wait(); err != nil {
		log.Printf("worker pool exited with error: %v", err)
	}
	log.Println("worker pool stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
