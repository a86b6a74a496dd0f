// backup sichert die Konfliktdatenbank per pg_dump nach S3 und rotiert alte Sicherungen.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"red-subcontinent/storage"
)

type BackupConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" default:"eu-central-1"`
	BackupPrefix    string `envconfig:"BACKUP_S3_PREFIX" default:"backups"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`

	Timeout time.Duration `envconfig:"BACKUP_TIMEOUT" default:"30m"`
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting backup")

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	// 1. Datenbank-Dump erstellen
	dump, err := createDump(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create database dump", zap.Error(err))
	}

	// 2. S3-Archiv aufbauen
	client, err := storage.NewS3Client(ctx, storage.Settings{
		Endpoint: cfg.BackupEndpoint,
		Region:   cfg.BackupRegion,
		Key:      cfg.BackupAccessKey,
		Secret:   cfg.BackupSecretKey,
	})
	if err != nil {
		logger.Fatal("Failed to create S3 client", zap.Error(err))
	}
	archive := storage.NewArchive(client, cfg.BackupBucket, cfg.BackupPrefix, cfg.BackupEndpoint)

	// 3. Hochladen
	link, err := archive.Upload(ctx, backupKey(time.Now()), dump, "application/gzip")
	if err != nil {
		logger.Fatal("Failed to upload backup", zap.Error(err))
	}
	logger.Info("Backup uploaded", zap.String("location", link), zap.Int("bytes", len(dump)))

	// 4. Alte Backups rotieren
	deleted, err := archive.Rotate(ctx, "", cfg.KeepBackups)
	for _, key := range deleted {
		logger.Info("Deleted old backup", zap.String("key", key))
	}
	if err != nil {
		logger.Error("Backup rotation incomplete", zap.Error(err))
	}

	logger.Info("Backup finished")
}

// backupKey liefert den Objektnamen einer Sicherung zum Zeitpunkt t.
func backupKey(t time.Time) string {
	return fmt.Sprintf("backup-%s.sql.gz", t.UTC().Format("2006-01-02T15-04-05Z"))
}

func dumpArgs(cfg BackupConfig) []string {
	return []string{
		"-h", cfg.DBHost,
		"-p", strconv.Itoa(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w", // Passwort kommt über PGPASSWORD
	}
}

func createDump(ctx context.Context, cfg BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump", dumpArgs(cfg)...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := io.Copy(gz, stdout); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pg_dump: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return buf.Bytes(), nil
}
