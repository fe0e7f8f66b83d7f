package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	domainErrors "github.com/mojotech/prist/internal/errors"
)

const (
	configDirName  = ".prist"
	configFileName = "config.toml"

	// EnvPrefix prefixes every environment override, e.g. PRIST_AUTH_USERNAME.
	EnvPrefix = "PRIST"
)

type (
	Config struct {
		Language string   `toml:"language"`
		Auth     Auth     `toml:"auth"`
		Endpoint Endpoint `toml:"endpoint"`

		// PathFile is where the config was loaded from or will be saved to.
		PathFile string `toml:"-"`
	}

	Auth struct {
		Username string `toml:"username"`
		Password string `toml:"password"`
	}
)

// Path returns the config file location for a repository.
func Path(repoPath string) string {
	return filepath.Join(repoPath, configDirName, configFileName)
}

// New builds a config for repoPath with the default language.
func New(repoPath string, auth Auth, endpoint Endpoint) *Config {
	return &Config{
		Language: defaultLang,
		Auth:     auth,
		Endpoint: endpoint,
		PathFile: Path(repoPath),
	}
}

// LoadConfig reads <repoPath>/.prist/config.toml and applies PRIST_* overrides.
func LoadConfig(repoPath string) (*Config, error) {
	configPath := Path(repoPath)

	info, err := os.Stat(configPath)
	if err != nil || info.IsDir() {
		return nil, domainErrors.ErrConfigMissing.
			WithContext("path", configPath).
			WithError(err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, domainErrors.ErrConfigMissing.
			WithContext("path", configPath).
			WithError(err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, domainErrors.ErrConfigInvalid.
			WithContext("path", configPath).
			WithError(fmt.Errorf("error decoding TOML: %w", err))
	}
	cfg.PathFile = configPath

	applyEnv(&cfg, os.LookupEnv)

	if cfg.Language == "" {
		cfg.Language = defaultLang
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveConfig writes the config to its PathFile, creating the directory.
func SaveConfig(cfg *Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	if cfg.PathFile == "" {
		return domainErrors.ErrConfigInvalid.WithError(fmt.Errorf("config file path is not set"))
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.PathFile), 0o700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// credentials live in this file
	if err := os.WriteFile(cfg.PathFile, data, 0o600); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	return nil
}

// Encode renders the config as TOML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("error encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// applyEnv overrides fields from PRIST_<SECTION>_<KEY> variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	fields := map[string]*string{
		"LANGUAGE":         &cfg.Language,
		"AUTH_USERNAME":    &cfg.Auth.Username,
		"AUTH_PASSWORD":    &cfg.Auth.Password,
		"ENDPOINT_NAME":    &cfg.Endpoint.Name,
		"ENDPOINT_OWNER":   &cfg.Endpoint.Owner,
		"ENDPOINT_API_URL": &cfg.Endpoint.APIURL,
	}

	for key, field := range fields {
		if v, ok := lookup(EnvPrefix + "_" + key); ok {
			*field = v
		}
	}

	if v, ok := lookup(EnvPrefix + "_ENDPOINT_KIND"); ok {
		cfg.Endpoint.Kind = EndpointKind(strings.ToLower(v))
	}
}

func validateConfig(cfg *Config) error {
	if !cfg.Endpoint.Kind.Valid() {
		return domainErrors.ErrUnsupportedHost.WithContext("kind", string(cfg.Endpoint.Kind))
	}
	if cfg.Endpoint.Name == "" {
		return domainErrors.ErrConfigInvalid.WithError(fmt.Errorf("endpoint name is empty"))
	}
	if cfg.Language != "" && !IsSupportedLanguage(cfg.Language) {
		return domainErrors.ErrConfigInvalid.WithError(fmt.Errorf("language %q is not supported", cfg.Language))
	}
	return nil
}
