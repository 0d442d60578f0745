/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// A workspace may carry a tourdeck.yaml with the same shape that overrides it.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	// DefaultsFile is an alternate default document (JSON), used by reset.
	DefaultsFile string `yaml:"defaults_file"`
	// HistoryDepth caps the undo history; 0 means unlimited.
	HistoryDepth int `yaml:"history_depth"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // file | sqlite | postgres | redis | memory
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	MaxBackups  int    `yaml:"max_backups"`
	// The redis password is not stored on disk; it lives in the OS keychain.
}

type ExportConfig struct {
	Preset         string `yaml:"preset"`
	ImageTimeoutMs int    `yaml:"image_timeout_ms"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	Export        ExportConfig  `yaml:"export"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Secrets are the values kept in the OS keyring.
type Secrets struct {
	// PasswordHash is the bcrypt hash guarding the editor.
	PasswordHash  string
	RedisPassword string
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{HistoryDepth: 100},
		Storage:       StorageConfig{Backend: "file", RedisAddr: "localhost:6379", MaxBackups: 5},
		Export:        ExportConfig{Preset: "a4", ImageTimeoutMs: 10000},
		Server:        ServerConfig{Addr: "127.0.0.1:8787", CORSOrigins: []string{"http://localhost:5173"}},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvDefaultsFile   = "TOURDECK_DEFAULTS_FILE"
	EnvBackend        = "TOURDECK_BACKEND"
	EnvPostgresDSN    = "TOURDECK_PG_DSN"
	EnvRedisAddr      = "TOURDECK_REDIS_ADDR"
	EnvRedisDB        = "TOURDECK_REDIS_DB"
	EnvRedisPassword  = "TOURDECK_REDIS_PASSWORD"
	EnvExportPreset   = "TOURDECK_EXPORT_PRESET"
	EnvImageTimeoutMs = "TOURDECK_IMAGE_TIMEOUT_MS"
	EnvServerAddr     = "TOURDECK_ADDR"
	EnvCORSOrigins    = "TOURDECK_CORS_ORIGINS"
	// EnvPasswordHash supplies the bcrypt hash without touching the keyring.
	EnvPasswordHash = "TOURDECK_PASSWORD_HASH"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "TOURDECK_LOG_LEVEL"
	EnvLogFormat = "TOURDECK_LOG_FORMAT"
	EnvLogSource = "TOURDECK_LOG_SOURCE"
	EnvLogFile   = "TOURDECK_LOG_FILE"
)

// WorkspaceFileName is the per-workspace override file.
const WorkspaceFileName = "tourdeck.yaml"

// Service/keys for OS keyring.
const (
	keyringService  = "TourDeck"
	keyringPassword = "password_hash"
	keyringRedis    = "redis_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "TourDeck")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "TourDeck")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "tourdeck")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "tourdeck")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads a .env file from the working directory (if present), the user
// config file (if present), applies defaults, and merges environment overrides.
// Secrets come from the environment or the keyring and are returned separately.
func Load() (AppConfig, Secrets, error) {
	// a missing .env is normal
	_ = godotenv.Load()
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, Secrets{}, err
	}
	if err := mergeFile(&cfg, path); err != nil {
		return cfg, Secrets{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, loadSecrets(), nil
}

// LoadWorkspace is Load followed by the workspace's tourdeck.yaml. A relative
// defaults_file in the workspace file is resolved against root.
func LoadWorkspace(root string) (AppConfig, Secrets, error) {
	cfg, sec, err := Load()
	if err != nil {
		return cfg, sec, err
	}
	var ws AppConfig
	data, err := os.ReadFile(filepath.Join(root, WorkspaceFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, sec, nil
	case err != nil:
		return cfg, sec, fmt.Errorf("read workspace config: %w", err)
	}
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return cfg, sec, fmt.Errorf("parse workspace config: %w", err)
	}
	if f := ws.General.DefaultsFile; f != "" && !filepath.IsAbs(f) {
		ws.General.DefaultsFile = filepath.Join(root, f)
	}
	mergeInto(&cfg, &ws)
	// env still wins over the workspace file
	applyEnvOverrides(&cfg)
	return cfg, sec, nil
}

func mergeFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fileCfg AppConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	mergeInto(cfg, &fileCfg)
	return nil
}

func loadSecrets() Secrets {
	var s Secrets
	if v := strings.TrimSpace(os.Getenv(EnvPasswordHash)); v != "" {
		s.PasswordHash = v
	} else if v, err := tokenStore.Get(keyringService, keyringPassword); err == nil {
		s.PasswordHash = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		s.RedisPassword = v
	} else if v, err := tokenStore.Get(keyringService, keyringRedis); err == nil {
		s.RedisPassword = v
	}
	return s
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// SavePasswordHash stores the editor password hash in the OS keyring.
func SavePasswordHash(hash string) error {
	if hash == "" {
		return tokenStore.Delete(keyringService, keyringPassword)
	}
	return tokenStore.Set(keyringService, keyringPassword, hash)
}

// SaveRedisPassword stores the redis password in the OS keyring.
func SaveRedisPassword(pw string) error {
	return tokenStore.Set(keyringService, keyringRedis, pw)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.General.DefaultsFile) != "" {
		dst.General.DefaultsFile = strings.TrimSpace(src.General.DefaultsFile)
	}
	if src.General.HistoryDepth != 0 {
		dst.General.HistoryDepth = src.General.HistoryDepth
	}
	// storage
	if strings.TrimSpace(src.Storage.Backend) != "" {
		dst.Storage.Backend = strings.ToLower(strings.TrimSpace(src.Storage.Backend))
	}
	if src.Storage.PostgresDSN != "" {
		dst.Storage.PostgresDSN = src.Storage.PostgresDSN
	}
	if src.Storage.RedisAddr != "" {
		dst.Storage.RedisAddr = src.Storage.RedisAddr
	}
	if src.Storage.RedisDB != 0 {
		dst.Storage.RedisDB = src.Storage.RedisDB
	}
	if src.Storage.MaxBackups != 0 {
		dst.Storage.MaxBackups = src.Storage.MaxBackups
	}
	// export
	if strings.TrimSpace(src.Export.Preset) != "" {
		dst.Export.Preset = strings.ToLower(strings.TrimSpace(src.Export.Preset))
	}
	if src.Export.ImageTimeoutMs != 0 {
		dst.Export.ImageTimeoutMs = src.Export.ImageTimeoutMs
	}
	// server
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if src.Server.CORSOrigins != nil {
		dst.Server.CORSOrigins = append([]string(nil), src.Server.CORSOrigins...)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDefaultsFile)); v != "" {
		cfg.General.DefaultsFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisDB)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Storage.RedisDB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportPreset)); v != "" {
		cfg.Export.Preset = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvImageTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Export.ImageTimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCORSOrigins)); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.defaults_file":   EnvDefaultsFile,
		"storage.backend":         EnvBackend,
		"storage.postgres_dsn":    EnvPostgresDSN,
		"storage.redis_addr":      EnvRedisAddr,
		"storage.redis_db":        EnvRedisDB,
		"export.preset":           EnvExportPreset,
		"export.image_timeout_ms": EnvImageTimeoutMs,
		"server.addr":             EnvServerAddr,
		"server.cors_origins":     EnvCORSOrigins,
		"logging.level":           EnvLogLevel,
		"logging.format":          EnvLogFormat,
		"logging.source":          EnvLogSource,
		"logging.file":            EnvLogFile,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// ImageTimeout returns the per-image load timeout.
func (e ExportConfig) ImageTimeout() time.Duration {
	if e.ImageTimeoutMs <= 0 {
		return time.Duration(Defaults().Export.ImageTimeoutMs) * time.Millisecond
	}
	return time.Duration(e.ImageTimeoutMs) * time.Millisecond
}
