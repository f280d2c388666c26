package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4280"`

	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Default-Limit für die Salz-Suche, wenn der Client keins angibt
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"50"`

	// Zeitplan für den periodischen Rebuild des Alias-Index
	IndexRebuildSchedule string `envconfig:"INDEX_REBUILD_SCHEDULE" default:"@hourly"`

	ExportS3Key    string `envconfig:"EXPORT_S3_KEY" required:"true"`
	ExportS3Secret string `envconfig:"EXPORT_S3_SECRET" required:"true"`
	ExportS3URL    string `envconfig:"EXPORT_S3_URL" required:"true"`
	ExportS3Region string `envconfig:"EXPORT_S3_REGION" required:"true"`
	ExportS3Bucket string `envconfig:"EXPORT_S3_BUCKET" required:"true"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
