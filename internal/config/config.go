package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxWorkerPollTimeout bounds how long the detection worker waits for a frame
// before re-checking for shutdown. Keep in sync with pipeline.MaxPollTimeout.
const MaxWorkerPollTimeout = 500 * time.Millisecond

type Config struct {
	Port     int
	Password string

	CameraDevice      string        // Numer urządzenia (np. "0") albo URL strumienia
	CaptureInterval   time.Duration // Co ile odczytywać klatkę z kamery
	ReconcileInterval time.Duration // Co ile przeliczać koszyk
	HistoryTimeout    time.Duration // Jak długo produkt zostaje w koszyku bez detekcji
	WorkerPollTimeout time.Duration

	ModelPath           string
	ModelConfigPath     string
	ModelFormat         string // "ssd" albo "yolov8"
	LabelsPath          string
	ConfidenceThreshold float64
	NMSThreshold        float64

	DatabasePath          string
	ImageDirectory        string
	EvidenceBufferLimit   int
	EvidenceFlushInterval time.Duration

	LogDirectory  string
	LogMaxSizeMB  int
	LogMaxBackups int

	PaymentMethods []string
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	return &Config{
		Port:     getEnvAsInt("PORT", 8080),
		Password: getEnv("PASSWORD", "totem"),

		CameraDevice:      getEnv("CAMERA_DEVICE", "0"),
		CaptureInterval:   getEnvAsDuration("CAPTURE_INTERVAL", 40*time.Millisecond),    // 25 Hz
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 100*time.Millisecond), // 10 Hz
		HistoryTimeout:    getEnvAsDuration("HISTORY_TIMEOUT", time.Second),
		WorkerPollTimeout: getEnvAsDuration("WORKER_POLL_TIMEOUT", 250*time.Millisecond),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "fruits_yolo.onnx")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", ""),
		ModelFormat:         getEnv("MODEL_FORMAT", "yolov8"),
		LabelsPath:          getEnv("LABELS_PATH", filepath.Join(".", "models", "labels.txt")),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.7),

		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "ai_totem.db")),
		ImageDirectory:        getEnv("IMAGE_DIR", filepath.Join(".", "evidence")),
		EvidenceBufferLimit:   getEnvAsInt("EVIDENCE_BUFFER_LIMIT", 20),
		EvidenceFlushInterval: getEnvAsDuration("EVIDENCE_FLUSH_INTERVAL", 30*time.Second),

		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogMaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),

		PaymentMethods: getEnvAsList("PAYMENT_METHODS", []string{"credit_card", "debit_card", "pix", "cash"}),
	}
}

// Validate rejects unusable settings and clamps the worker poll timeout.
func (c *Config) Validate() error {
	if c.CaptureInterval <= 0 {
		return fmt.Errorf("capture interval must be positive, got %s", c.CaptureInterval)
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", c.ReconcileInterval)
	}
	if c.HistoryTimeout <= 0 {
		return fmt.Errorf("history timeout must be positive, got %s", c.HistoryTimeout)
	}
	if c.WorkerPollTimeout <= 0 || c.WorkerPollTimeout > MaxWorkerPollTimeout {
		c.WorkerPollTimeout = MaxWorkerPollTimeout
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.ModelFormat != "ssd" && c.ModelFormat != "yolov8" {
		return fmt.Errorf("unknown model format %q", c.ModelFormat)
	}
	if len(c.PaymentMethods) == 0 {
		return fmt.Errorf("at least one payment method is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
