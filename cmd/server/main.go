package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bcd-backend/cmd"
	"bcd-backend/internal/api"
	"bcd-backend/internal/core"
	"bcd-backend/internal/database"
	"bcd-backend/internal/messaging"
	"bcd-backend/internal/storage"
	"bcd-backend/internal/web"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

type Config struct {
	Root      string `env:"ROOT" envDefault:"./bcd"`
	Port      int    `env:"PORT" envDefault:"8000"`
	ModelPath string `env:"MODEL_PATH" envDefault:"pipeline_scaler_pca_logreg.json"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:""`
	RabbitMQURL string `env:"RABBITMQ_URL" envDefault:""`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL" envDefault:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:""`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	DataBucket string `env:"DATA_BUCKET" envDefault:"data"`
}

// createQueue builds an in process queue for the single binary deployment and
// requeues jobs that were still queued when the previous run stopped.
func createQueue(db *gorm.DB) *messaging.InMemoryQueue {
	var jobs []database.BatchJob
	if err := db.Where("status = ?", database.JobQueued).Find(&jobs).Error; err != nil {
		log.Fatalf("Failed to fetch queued jobs from database: %v", err)
	}

	queue := messaging.NewInMemoryQueue()

	for _, job := range jobs {
		if err := queue.PublishScoreJob(context.Background(), messaging.ScoreJobPayload{JobId: job.Id}); err != nil {
			log.Fatalf("Failed to requeue score job: %v", err)
		}
	}

	return queue
}

func createServer(db *gorm.DB, storage storage.Provider, publisher messaging.Publisher, pipeline *core.Pipeline, port int, dataBucket string) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	web.NewFormHandler(pipeline).AddRoutes(r)

	apiHandler := api.NewPredictionService(db, storage, publisher, pipeline, dataBucket)
	r.Route("/api/v1", func(r chi.Router) {
		apiHandler.AddRoutes(r)
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	log.Println("Starting server...")

	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	// The pipeline is loaded once, before any request is served, so a bad
	// artifact fails the process instead of the first prediction.
	pipeline, err := core.LoadPipeline(cfg.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load pipeline artifact: %v", err)
	}
	slog.Info("loaded pipeline artifact", "path", cfg.ModelPath, "components", len(pipeline.PCA.Components))

	db, err := database.New(cfg.DatabaseURL, filepath.Join(cfg.Root, "db", "bcd.db"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := cmd.CreateStorageProvider(cmd.StorageConfig{
		Root:              cfg.Root,
		S3EndpointURL:     cfg.S3EndpointURL,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3Region:          cfg.S3Region,
	})
	if err != nil {
		log.Fatalf("Failed to create storage provider: %v", err)
	}

	if err := store.CreateBucket(context.Background(), cfg.DataBucket); err != nil {
		log.Fatalf("Failed to create data bucket: %v", err)
	}

	var publisher messaging.Publisher
	if cfg.RabbitMQURL != "" {
		// Scoring runs in separate worker processes consuming from RabbitMQ.
		rabbitPublisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
	} else {
		// Single binary deployment: run the scoring worker in process.
		queue := createQueue(db)
		publisher = queue

		processor := core.NewTaskProcessor(db, store, queue, pipeline, cfg.DataBucket)
		slog.Info("starting in process worker")
		go processor.Start()
	}

	server := createServer(db, store, publisher, pipeline, cfg.Port, cfg.DataBucket)

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("Server listening on port %d", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v", cfg.Port, err)
	}

	log.Println("Server stopped.")
}
