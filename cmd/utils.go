package cmd

import (
	"flag"
	"log"
	"path/filepath"

	"bcd-backend/internal/storage"

	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// StorageConfig selects the object store backend: an S3 endpoint when set,
// otherwise files under root/storage.
type StorageConfig struct {
	Root              string
	S3EndpointURL     string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
}

func CreateStorageProvider(cfg StorageConfig) (storage.Provider, error) {
	if cfg.S3EndpointURL != "" {
		return storage.NewS3Provider(&storage.S3ProviderConfig{
			S3EndpointURL:     cfg.S3EndpointURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
		})
	}
	return storage.NewLocalProvider(filepath.Join(cfg.Root, "storage")), nil
}
