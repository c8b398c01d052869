// Package config loads facewatch settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting. Command-line flags override it after Load.
type Config struct {
	CameraID int
	Width    int
	Height   int
	// Preview opens the local preview window.
	Preview bool

	GalleryDir  string
	ModelsDir   string
	CascadePath string
	Scale       float64
	Tolerance   float64

	Cooldown     time.Duration
	AlertWorkers int
	Caption      string

	DataDir     string
	LogDir      string
	SnapshotDir string
	HooksDir    string
	StaticDir   string
	HTTPAddr    string

	TelegramToken  string
	TelegramChatID string

	MQTTBroker      string
	MQTTTopicPrefix string
	MQTTClientID    string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	dataDir := getEnv("FACEWATCH_DATA_DIR", defaultDataDir())

	return &Config{
		CameraID: getEnvInt("FACEWATCH_CAMERA", 0),
		Width:    getEnvInt("FACEWATCH_WIDTH", 640),
		Height:   getEnvInt("FACEWATCH_HEIGHT", 480),
		Preview:  getEnvBool("FACEWATCH_PREVIEW", true),

		GalleryDir:  getEnv("FACEWATCH_GALLERY", "known_faces"),
		ModelsDir:   getEnv("FACEWATCH_MODELS", filepath.Join(dataDir, "models")),
		CascadePath: getEnv("FACEWATCH_CASCADE", ""),
		Scale:       getEnvFloat("FACEWATCH_SCALE", 0.5),
		Tolerance:   getEnvFloat("FACEWATCH_TOLERANCE", 0.6),

		Cooldown:     getEnvDuration("FACEWATCH_COOLDOWN", 60*time.Second),
		AlertWorkers: getEnvInt("FACEWATCH_ALERT_WORKERS", 4),
		Caption:      getEnv("FACEWATCH_CAPTION", "Detected by facewatch"),

		DataDir:     dataDir,
		LogDir:      getEnv("FACEWATCH_LOG_DIR", "logs"),
		SnapshotDir: getEnv("FACEWATCH_SNAPSHOT_DIR", "snapshots"),
		HooksDir:    getEnv("FACEWATCH_HOOKS_DIR", filepath.Join(dataDir, "hooks")),
		StaticDir:   getEnv("FACEWATCH_WEB_DIR", ""),
		HTTPAddr:    getEnv("FACEWATCH_HTTP_ADDR", ""),

		TelegramToken:  getEnv("TELEGRAM_TOKEN", getEnv("TELEGRAM_BOT_TOKEN", "")),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),

		MQTTBroker:      getEnv("MQTT_BROKER", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "facewatch"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "facewatch"),
	}
}

// DBPath returns the SQLite history database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "facewatch.db")
}

// TelegramEnabled reports whether Telegram credentials are complete.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.CameraID < 0 {
		errs = append(errs, fmt.Errorf("camera id must be >= 0, got %d", c.CameraID))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid capture size %dx%d", c.Width, c.Height))
	}
	if c.Scale <= 0 || c.Scale > 1 {
		errs = append(errs, fmt.Errorf("scale must be in (0,1], got %v", c.Scale))
	}
	if c.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %v", c.Tolerance))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must not be negative, got %v", c.Cooldown))
	}
	if c.AlertWorkers <= 0 {
		errs = append(errs, fmt.Errorf("alert workers must be positive, got %d", c.AlertWorkers))
	}
	return errors.Join(errs...)
}

// FindWebDir returns the first existing web asset directory among "web",
// "../web" and <DataDir>/web, or "" when none exists.
func (c *Config) FindWebDir() string {
	if c.StaticDir != "" {
		return c.StaticDir
	}
	for _, p := range []string{"web", "../web", filepath.Join(c.DataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".facewatch"
	}
	return filepath.Join(home, ".facewatch")
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
		log.Printf("config: invalid %s=%q, using %d", key, v, defaultVal)
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("config: invalid %s=%q, using %v", key, v, defaultVal)
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("config: invalid %s=%q, using %v", key, v, defaultVal)
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
		log.Printf("config: invalid %s=%q, using %v", key, v, defaultVal)
	}
	return defaultVal
}
