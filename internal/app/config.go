package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursegen-backend/internal/jobs/pipeline"
	"github.com/yungbote/coursegen-backend/internal/learning/synth"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type Config struct {
	Port        string
	Environment string

	DocstoreBackend    string
	SQLitePath         string
	FirestoreProjectID string

	DefaultUserID string
	JWTSecret     string
	CORSOrigins   []string

	MaxUploadBytes int64
	MetricsAddr    string
	ShutdownGrace  time.Duration

	LLM      llm.Config
	Synth    synth.Config
	Pipeline pipeline.Config
}

// LoadEnvFiles fills unset or empty variables from .env (or ENV_FILE) and then from the YAML file
// named by CONFIG_FILE. Values already present in the environment always win.
func LoadEnvFiles() error {
	envFile := envutil.String("ENV_FILE", ".env")
	values, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	for key, v := range values {
		if err := setIfEmpty(key, v); err != nil {
			return err
		}
	}
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := loadYAMLEnv(path); err != nil {
			return err
		}
	}
	return nil
}

// loadYAMLEnv reads a flat mapping of variable names to scalar values. Lists become comma-joined.
func loadYAMLEnv(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for key, v := range values {
		if err := setIfEmpty(strings.ToUpper(key), yamlScalar(v)); err != nil {
			return err
		}
	}
	return nil
}

func setIfEmpty(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.TrimSpace(os.Getenv(key)) != "" {
		return nil
	}
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func yamlScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, yamlScalar(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:               envutil.String("PORT", "8080"),
		Environment:        envutil.String("ENVIRONMENT", "development"),
		DocstoreBackend:    strings.ToLower(envutil.String("DOCSTORE_BACKEND", BackendMemory)),
		SQLitePath:         envutil.String("SQLITE_PATH", "coursegen.db"),
		FirestoreProjectID: envutil.String("FIRESTORE_PROJECT_ID", envutil.String("GOOGLE_CLOUD_PROJECT", "")),
		JWTSecret:          envutil.String("AUTH_JWT_SECRET", ""),
		CORSOrigins:        envutil.List("CORS_ALLOWED_ORIGINS", nil),
		MaxUploadBytes:     envutil.Int64("MAX_UPLOAD_BYTES", 25<<20),
		MetricsAddr:        envutil.String("METRICS_ADDR", ""),
		ShutdownGrace:      envutil.Seconds("SHUTDOWN_GRACE_SECONDS", 30*time.Second),
		LLM:                llm.ConfigFromEnv(),
		Synth:              synth.ConfigFromEnv(),
		Pipeline:           pipeline.ConfigFromEnv(),
	}
	if cfg.JWTSecret == "" {
		cfg.DefaultUserID = envutil.String("DEFAULT_USER_ID", "demo_user")
	}
	if log != nil {
		log.Info("config loaded",
			"port", cfg.Port,
			"docstore", cfg.DocstoreBackend,
			"model", cfg.LLM.Model,
			"jwt_auth", cfg.JWTSecret != "",
			"default_user", cfg.DefaultUserID,
		)
	}
	return cfg
}

func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
