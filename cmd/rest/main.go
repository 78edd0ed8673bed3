package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"resume-qa-be/internal/bootstrap"
	"resume-qa-be/internal/config"
	"resume-qa-be/internal/server"
	"resume-qa-be/internal/tracer"
	"resume-qa-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled)

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment == "production")
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Panicf("Unable to bootstrap: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	// 4. Background workers
	// admissions outlive the signal so Drain can still complete them
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := container.AdmissionConsumer.Consume(workerCtx); err != nil {
		log.Panicf("Unable to start admission consumer: %v", err)
	}
	if container.ConsumerService != nil {
		if err := container.ConsumerService.Consume(gctx); err != nil {
			log.Printf("[WARN] Corpus watcher not started: %v", err)
		}
	}
	g.Go(func() error {
		return container.Janitor.Run(gctx)
	})

	// 5. HTTP
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server stopped: %v", err)
	}

	// Drain returns once every enqueued admission has been acked by the consumer
	container.Orchestrator.Drain()
	stopWorkers()
	container.Close()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		log.Printf("Tracer shutdown: %v", err)
	}
	if err := database.Close(gormDB); err != nil {
		log.Printf("Database close: %v", err)
	}
}
