package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/commandcenter/command-center/internal/audit"
	"github.com/commandcenter/command-center/internal/config"
	"github.com/commandcenter/command-center/internal/dispatch"
	"github.com/commandcenter/command-center/internal/httpserver"
	"github.com/commandcenter/command-center/internal/notify"
	"github.com/commandcenter/command-center/internal/orchestrator"
	"github.com/commandcenter/command-center/internal/realtime"
	"github.com/commandcenter/command-center/internal/source"
	"github.com/commandcenter/command-center/internal/store"
	"github.com/commandcenter/command-center/internal/tlsutil"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open postgres: %v", err)
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			cancel()
			log.Fatalf("failed to ping postgres: %v", err)
		}
		cancel()
	}
	log.Println("connected to postgres")

	// Core state: source, store, notifications
	src := source.NewPGSource(db)
	bus := notify.NewBus()
	st := store.New(src, cfg.FetchLimit)

	// Initial page load. A failure here is recoverable: the store records
	// the error and the next fetch will retry.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := st.Fetch(ctx); err != nil {
			log.Printf("initial fetch: %v", err)
		}
		cancel()
	}

	// Orchestrator client and dispatcher
	client, err := orchestrator.NewHTTPClient(orchestrator.HTTPClientConfig{BaseURL: cfg.OrchestratorURL})
	if err != nil {
		log.Fatalf("failed to initialize orchestrator client: %v", err)
	}

	var archiver audit.Archiver
	if cfg.S3Bucket != "" {
		a, err := audit.NewS3Archiver(context.Background(), cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("failed to initialize s3 archiver: %v", err)
		}
		archiver = a
		log.Printf("decision archiver initialized (bucket=%s prefix=%s)", cfg.S3Bucket, cfg.S3Prefix)
	}
	recorder := audit.NewRecorder(db, archiver)

	dispatcher := dispatch.New(st, client, bus, recorder)

	// Realtime change feed
	var (
		consumer       *realtime.Consumer
		consumerCancel context.CancelFunc
	)
	if len(cfg.KafkaBrokers) > 0 {
		consumer, err = realtime.NewConsumer(realtime.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, st, bus)
		if err != nil {
			log.Fatalf("failed to initialize realtime consumer: %v", err)
		}
		var ctx context.Context
		ctx, consumerCancel = context.WithCancel(context.Background())
		go func() {
			if err := consumer.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("[realtime] exited with error: %v", err)
			}
		}()
		log.Printf("realtime consumer started (brokers=%v topic=%s)", cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		log.Println("KAFKA_BROKERS not set; realtime change feed disabled")
	}

	if cfg.SessionSecret == "" {
		log.Println("warning: SESSION_SECRET not set; all authenticated routes will reject requests")
	}

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpserver.New(cfg, st, src, dispatcher, client, bus).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
		tlsCfg, err := tlsutil.ServerConfig(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			log.Fatalf("failed to initialize TLS config: %v", err)
		}
		srv.TLSConfig = tlsCfg
		go func() {
			log.Printf("starting command-center server (TLS) on %s", cfg.ListenAddr)
			if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server failed: %v", err)
			}
		}()
	} else {
		go func() {
			log.Printf("starting command-center server on %s", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server failed: %v", err)
			}
		}()
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}

	if consumerCancel != nil {
		consumerCancel()
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Printf("close realtime consumer: %v", err)
		}
	}

	_ = db.Close()
	log.Println("server stopped")
}
