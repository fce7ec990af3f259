// Package config loads runtime settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gsetrade/gsebook/internal/inventory"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageDrive = "drive"
)

// Config holds every setting the server needs.
type Config struct {
	DBPath  string
	Addr    string
	LogPath string

	Storage         string
	UploadDir       string
	DriveRoot       string
	CredentialsFile string
	TokenFile       string

	// SessionSecret signs login cookies and API tokens. When empty, a secret
	// generated on first run and kept in the database is used.
	SessionSecret string

	ExpensePolicy  inventory.ExpensePolicy
	MaxUploadBytes int64
	SecureCookies  bool
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	policy, err := inventory.ParseExpensePolicy(os.Getenv("GSE_EXPENSE_POLICY"))
	if err != nil {
		return nil, err
	}

	maxMB, err := envInt("GSE_MAX_UPLOAD_MB", 16)
	if err != nil {
		return nil, err
	}

	secure, err := envBool("GSE_SECURE_COOKIES", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBPath:          envString("GSE_DB", "gsebook.sqlite3"),
		Addr:            envString("GSE_ADDR", ":8080"),
		LogPath:         os.Getenv("GSE_LOG"),
		Storage:         strings.ToLower(envString("GSE_STORAGE", StorageLocal)),
		UploadDir:       envString("GSE_UPLOAD_DIR", "uploads"),
		DriveRoot:       envString("GSE_DRIVE_ROOT", "GSE"),
		CredentialsFile: envString("GOOGLE_DRIVE_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       envString("GOOGLE_DRIVE_TOKEN_FILE", "token.json"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		ExpensePolicy:   policy,
		MaxUploadBytes:  int64(maxMB) << 20,
		SecureCookies:   secure,
	}, nil
}

// Validate reports settings that would stop the server from working.
func (c *Config) Validate() error {
	var errs []error

	if c.DBPath == "" {
		errs = append(errs, errors.New("GSE_DB must not be empty"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("GSE_ADDR must not be empty"))
	}
	if c.DriveRoot == "" {
		errs = append(errs, errors.New("GSE_DRIVE_ROOT must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("GSE_MAX_UPLOAD_MB must be positive"))
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}

	switch c.Storage {
	case StorageLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("GSE_UPLOAD_DIR must not be empty for local storage"))
		}
	case StorageDrive:
		if c.CredentialsFile == "" || c.TokenFile == "" {
			errs = append(errs, errors.New("GOOGLE_DRIVE_CREDENTIALS_FILE and GOOGLE_DRIVE_TOKEN_FILE are required for drive storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("GSE_STORAGE must be %q or %q, got %q", StorageLocal, StorageDrive, c.Storage))
	}

	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
