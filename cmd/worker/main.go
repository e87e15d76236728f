package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"bcd-backend/cmd"
	"bcd-backend/internal/core"
	"bcd-backend/internal/database"
	"bcd-backend/internal/messaging"

	"github.com/caarlos0/env/v11"
)

type WorkerConfig struct {
	Root      string `env:"ROOT" envDefault:"./bcd"`
	ModelPath string `env:"MODEL_PATH" envDefault:"pipeline_scaler_pca_logreg.json"`

	DatabaseURL string `env:"DATABASE_URL,notEmpty,required"`
	RabbitMQURL string `env:"RABBITMQ_URL,notEmpty,required"`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL" envDefault:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:""`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	DataBucket string `env:"DATA_BUCKET" envDefault:"data"`
}

func main() {
	log.Println("Starting worker process...")

	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	pipeline, err := core.LoadPipeline(cfg.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load pipeline artifact: %v", err)
	}

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

	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	processor := core.NewTaskProcessor(db, store, reciever, pipeline, cfg.DataBucket)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutdown signal received")
		processor.Stop()
	}()

	log.Println("Worker started. Waiting for tasks.")
	processor.Start()

	log.Println("Worker process stopped.")
}
