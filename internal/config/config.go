/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user-editable vna configuration: defaults,
// merged with an optional YAML file, merged with VNA_* environment
// overrides. The backend token never touches the YAML file; it lives in
// the OS keyring.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	// Language is the fallback syllabification hint for documents whose
	// metadata omits one.
	Language    string `yaml:"language"`
	DefaultGati int    `yaml:"default_gati"`
}

type ArchiveConfig struct {
	// Root is the composition archive directory; the search index lives
	// under <root>/.vna. Empty means the current directory.
	Root string `yaml:"root"`
}

type EditorConfig struct {
	Addr string `yaml:"addr"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keyring.
}

type ExportConfig struct {
	Preset   string `yaml:"preset"`
	PageSize string `yaml:"page_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is persisted as YAML in the user scope. config_version is
// bumped on backward-incompatible structure changes; unknown fields are
// ignored on load.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Archive       ArchiveConfig `yaml:"archive"`
	Editor        EditorConfig  `yaml:"editor"`
	Backend       BackendConfig `yaml:"backend"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Language: "", DefaultGati: 4},
		Archive:       ArchiveConfig{Root: ""},
		Editor:        EditorConfig{Addr: "127.0.0.1:7517"},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Export:        ExportConfig{Preset: "concert", PageSize: "a4"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "VNA_CONFIG"
	EnvLanguage         = "VNA_LANGUAGE"
	EnvDefaultGati      = "VNA_DEFAULT_GATI"
	EnvArchiveRoot      = "VNA_ARCHIVE_ROOT"
	EnvEditorAddr       = "VNA_EDITOR_ADDR"
	EnvBackendURL       = "VNA_BACKEND_URL"
	EnvBackendTimeoutMs = "VNA_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "VNA_TLS_INSECURE"
	EnvTelemetryOptIn   = "VNA_TELEMETRY_OPT_IN"
	EnvExportPreset     = "VNA_EXPORT_PRESET"
	EnvExportPageSize   = "VNA_PAGE_SIZE"
	EnvLogLevel         = "VNA_LOG_LEVEL"
	EnvLogFormat        = "VNA_LOG_FORMAT"
	EnvLogSource        = "VNA_LOG_SOURCE"
	EnvLogFile          = "VNA_LOG_FILE"
)

// Service/key for the OS keyring.
const (
	keyringService = "vna"
	keyringToken   = "backend_token"
)

// Keyring access goes through these vars so tests can swap in a stub.
var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)

// LoadToken fetches the backend token from the OS keyring. A missing
// entry is not an error; it returns the empty string.
func LoadToken() string {
	tok, err := keyringGet(keyringService, keyringToken)
	if err != nil {
		return ""
	}
	return tok
}

// StoreToken persists the backend token in the OS keyring.
func StoreToken(token string) error {
	return keyringSet(keyringService, keyringToken, token)
}

// ClearToken removes the backend token from the OS keyring.
func ClearToken() error {
	err := keyringDelete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ConfigPath returns the per-user config file path. VNA_CONFIG overrides
// the platform default.
func ConfigPath() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigPath)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "vna")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "vna")
	default: // linux and others
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(os.Getenv("HOME"), ".config")
		}
		base = filepath.Join(base, "vna")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and
// merges environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
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

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans copy directly from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if v := strings.TrimSpace(src.General.Language); v != "" {
		dst.General.Language = strings.ToLower(v)
	}
	if src.General.DefaultGati != 0 {
		dst.General.DefaultGati = src.General.DefaultGati
	}
	if v := strings.TrimSpace(src.Archive.Root); v != "" {
		dst.Archive.Root = v
	}
	if v := strings.TrimSpace(src.Editor.Addr); v != "" {
		dst.Editor.Addr = v
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	if v := strings.TrimSpace(src.Export.Preset); v != "" {
		dst.Export.Preset = v
	}
	if v := strings.TrimSpace(src.Export.PageSize); v != "" {
		dst.Export.PageSize = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		cfg.General.Language = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultGati)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.General.DefaultGati = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvArchiveRoot)); v != "" {
		cfg.Archive.Root = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEditorAddr)); v != "" {
		cfg.Editor.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportPreset)); v != "" {
		cfg.Export.Preset = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportPageSize)); v != "" {
		cfg.Export.PageSize = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor reports which env var, if any, currently overrides the
// given dotted config key.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.language":         EnvLanguage,
		"general.default_gati":     EnvDefaultGati,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"archive.root":             EnvArchiveRoot,
		"editor.addr":              EnvEditorAddr,
		"backend.base_url":         EnvBackendURL,
		"backend.timeout_ms":       EnvBackendTimeoutMs,
		"backend.tls_insecure":     EnvBackendTLSInsec,
		"export.preset":            EnvExportPreset,
		"export.page_size":         EnvExportPageSize,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the backend request timeout, falling back to the
// default for unset or nonsense values.
func (b BackendConfig) Timeout() time.Duration {
	ms := b.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Backend.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
