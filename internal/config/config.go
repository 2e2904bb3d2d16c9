package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	DefaultListenURL  = "http://127.0.0.1:3000"
	DefaultDBFileName = ".protospace.db"
	DefaultLogLevel   = "debug"

	DefaultSessionTTL = 24 * time.Hour
	DefaultTokenTTL   = 12 * time.Hour

	DefaultUploadMaxBytes        int64 = 10 * 1024 * 1024
	DefaultUploadMultipartMemory int64 = 8 * 1024 * 1024

	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"

	DefaultBlobsDirName = "blobs"

	configFileName  = ".protospace.toml"
	configDirEnvKey = "PROTOSPACE_CONFIG_DIR"
)

// Duration is a time.Duration stored as text ("336h", "30m") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// UploadConfig bounds image uploads.
type UploadConfig struct {
	MaxBytes        int64 `toml:"max_bytes"`
	MultipartMemory int64 `toml:"multipart_memory"`
}

// BlobConfig selects and configures the image blob backend.
type BlobConfig struct {
	Backend     string `toml:"backend"`
	LocalRoot   string `toml:"local_root"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
}

// Config defines runtime configuration for protospace.
type Config struct {
	ListenURL   string       `toml:"listen_url"`
	DBPath      string       `toml:"db_path"`
	LogLevel    string       `toml:"log_level"`
	SessionTTL  Duration     `toml:"session_ttl"`
	TokenSecret string       `toml:"token_secret"`
	TokenTTL    Duration     `toml:"token_ttl"`
	Uploads     UploadConfig `toml:"uploads"`
	Blobs       BlobConfig   `toml:"blobs"`
}

// envOverrides holds raw environment values. Unset variables stay zero and
// leave the file configuration untouched.
type envOverrides struct {
	ListenURL      string        `env:"PROTOSPACE_LISTEN_URL"`
	DBPath         string        `env:"PROTOSPACE_DB"`
	LogLevel       string        `env:"PROTOSPACE_LOG_LEVEL"`
	SessionTTL     time.Duration `env:"PROTOSPACE_SESSION_TTL"`
	TokenSecret    string        `env:"PROTOSPACE_TOKEN_SECRET"`
	TokenTTL       time.Duration `env:"PROTOSPACE_TOKEN_TTL"`
	UploadMaxBytes int64         `env:"PROTOSPACE_UPLOAD_MAX_BYTES"`
	BlobBackend    string        `env:"PROTOSPACE_BLOB_BACKEND"`
	BlobLocalRoot  string        `env:"PROTOSPACE_BLOB_ROOT"`
	S3Bucket       string        `env:"PROTOSPACE_S3_BUCKET"`
	S3Region       string        `env:"PROTOSPACE_S3_REGION"`
	S3Endpoint     string        `env:"PROTOSPACE_S3_ENDPOINT"`
	S3AccessKey    string        `env:"PROTOSPACE_S3_ACCESS_KEY"`
	S3SecretKey    string        `env:"PROTOSPACE_S3_SECRET_KEY"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		ListenURL:  DefaultListenURL,
		LogLevel:   DefaultLogLevel,
		SessionTTL: Duration{DefaultSessionTTL},
		TokenTTL:   Duration{DefaultTokenTTL},
		Uploads: UploadConfig{
			MaxBytes:        DefaultUploadMaxBytes,
			MultipartMemory: DefaultUploadMultipartMemory,
		},
		Blobs: BlobConfig{
			Backend: BlobBackendLocal,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

var allowedKeys = []string{
	"listen_url",
	"db_path",
	"log_level",
	"session_ttl",
	"token_secret",
	"token_ttl",
	"uploads.max_bytes",
	"uploads.multipart_memory",
	"blobs.backend",
	"blobs.local_root",
	"blobs.s3_bucket",
	"blobs.s3_region",
	"blobs.s3_endpoint",
	"blobs.s3_access_key",
	"blobs.s3_secret_key",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// IsSecretKey reports keys whose values are masked in listings.
func IsSecretKey(key string) bool {
	return key == "token_secret" || key == "blobs.s3_secret_key"
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "listen_url":
		return c.ListenURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "session_ttl":
		return c.SessionTTL.String(), nil
	case "token_secret":
		return c.TokenSecret, nil
	case "token_ttl":
		return c.TokenTTL.String(), nil
	case "uploads.max_bytes":
		return strconv.FormatInt(c.Uploads.MaxBytes, 10), nil
	case "uploads.multipart_memory":
		return strconv.FormatInt(c.Uploads.MultipartMemory, 10), nil
	case "blobs.backend":
		return c.Blobs.Backend, nil
	case "blobs.local_root":
		return c.Blobs.LocalRoot, nil
	case "blobs.s3_bucket":
		return c.Blobs.S3Bucket, nil
	case "blobs.s3_region":
		return c.Blobs.S3Region, nil
	case "blobs.s3_endpoint":
		return c.Blobs.S3Endpoint, nil
	case "blobs.s3_access_key":
		return c.Blobs.S3AccessKey, nil
	case "blobs.s3_secret_key":
		return c.Blobs.S3SecretKey, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads the global config file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err == nil {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	cfg.normalize()

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var raw envOverrides
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&cfg.ListenURL, raw.ListenURL)
	setString(&cfg.DBPath, raw.DBPath)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.TokenSecret, raw.TokenSecret)
	setString(&cfg.Blobs.Backend, raw.BlobBackend)
	setString(&cfg.Blobs.LocalRoot, raw.BlobLocalRoot)
	setString(&cfg.Blobs.S3Bucket, raw.S3Bucket)
	setString(&cfg.Blobs.S3Region, raw.S3Region)
	setString(&cfg.Blobs.S3Endpoint, raw.S3Endpoint)
	setString(&cfg.Blobs.S3AccessKey, raw.S3AccessKey)
	setString(&cfg.Blobs.S3SecretKey, raw.S3SecretKey)
	if raw.SessionTTL > 0 {
		cfg.SessionTTL = Duration{raw.SessionTTL}
	}
	if raw.TokenTTL > 0 {
		cfg.TokenTTL = Duration{raw.TokenTTL}
	}
	if raw.UploadMaxBytes > 0 {
		cfg.Uploads.MaxBytes = raw.UploadMaxBytes
	}
	return nil
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

// BlobRoot returns the local blob directory, defaulting next to the database.
func (c *Config) BlobRoot() string {
	if root := strings.TrimSpace(c.Blobs.LocalRoot); root != "" {
		return root
	}
	return filepath.Join(filepath.Dir(c.DBPath), DefaultBlobsDirName)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_bytes", "uploads.multipart_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "session_ttl", "token_ttl":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return parsed.String(), nil
	case "blobs.backend":
		if value != BlobBackendLocal && value != BlobBackendS3 {
			return nil, fmt.Errorf("%s must be %q or %q", key, BlobBackendLocal, BlobBackendS3)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.SessionTTL.Duration <= 0 {
		c.SessionTTL = Duration{DefaultSessionTTL}
	}
	if c.TokenTTL.Duration <= 0 {
		c.TokenTTL = Duration{DefaultTokenTTL}
	}
	if c.Uploads.MaxBytes <= 0 {
		c.Uploads.MaxBytes = DefaultUploadMaxBytes
	}
	if c.Uploads.MultipartMemory <= 0 {
		c.Uploads.MultipartMemory = DefaultUploadMultipartMemory
	}
	c.Blobs.Backend = strings.ToLower(strings.TrimSpace(c.Blobs.Backend))
	if c.Blobs.Backend == "" {
		c.Blobs.Backend = BlobBackendLocal
	}
}
