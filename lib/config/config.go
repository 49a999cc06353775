// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/updater/lib/branchmatch"
	"github.com/bureau-foundation/updater/lib/changeset"
	"github.com/bureau-foundation/updater/lib/git"
	"github.com/bureau-foundation/updater/lib/install"
	"github.com/bureau-foundation/updater/lib/schema/forge"
	"github.com/bureau-foundation/updater/lib/subproject"
	"github.com/bureau-foundation/updater/lib/webhook"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "BUREAU_UPDATER_CONFIG"

// ErrNoConfig is returned by Load when no config path is available.
var ErrNoConfig = errors.New(EnvironmentVariable + " environment variable not set")

// Config is the updater configuration.
type Config struct {
	// Repository is the repository name whose pushes drive updates.
	// Pushes to other repositories only produce alerts.
	Repository string `yaml:"repository" validate:"required"`

	// Branch lists the patterns a pushed branch must match to drive
	// an update. See lib/branchmatch.
	Branch branchmatch.Spec `yaml:"branch" validate:"min=1,dive,required"`

	// AutoUpdate enables the update pipeline. Alerts are sent either
	// way.
	AutoUpdate bool `yaml:"auto_update"`

	// WorkDir is the working copy and deployment root.
	WorkDir string `yaml:"work_dir" validate:"required"`

	// StateDir holds the update lock and watchdog record.
	StateDir string `yaml:"state_dir" validate:"required"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Webhook WebhookConfig `yaml:"webhook"`

	// Events toggles alerts per event kind. Kinds missing from the
	// map are enabled.
	Events map[string]bool `yaml:"events"`

	Update UpdateConfig `yaml:"update"`
}

// WebhookConfig configures webhook intake.
type WebhookConfig struct {
	// Listen is the TCP listen address.
	Listen string `yaml:"listen" validate:"required"`

	// Path is the callback path.
	Path string `yaml:"path" validate:"required,startswith=/"`

	// SecretFile holds the HMAC secret, plaintext or age-encrypted.
	SecretFile string `yaml:"secret_file"`

	// IdentityFile holds the age identity for an encrypted
	// SecretFile.
	IdentityFile string `yaml:"identity_file"`

	// AllowUnsigned accepts deliveries without a signature. Only for
	// webhooks configured without a secret.
	AllowUnsigned bool `yaml:"allow_unsigned"`
}

// UpdateConfig tunes the update pipeline.
type UpdateConfig struct {
	// HotFiles are paths whose modification requires a full restart.
	HotFiles []string `yaml:"hot_files" validate:"dive,required"`

	// Manifest is the dependency manifest file name. A pushed path
	// containing it triggers a reinstall.
	Manifest string `yaml:"manifest"`

	// SubprojectGlob finds sub-project manifests under WorkDir.
	SubprojectGlob string `yaml:"subproject_glob" validate:"required"`

	// InstallCommand is the dependency install program and arguments.
	InstallCommand []string `yaml:"install_command" validate:"min=1,dive,required"`

	// InstallConcurrency limits simultaneous installs; 0 is
	// unlimited.
	InstallConcurrency int `yaml:"install_concurrency" validate:"gte=0"`

	// InstallTimeout bounds each install.
	InstallTimeout time.Duration `yaml:"install_timeout"`

	// CommandTimeout bounds each git invocation.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// Default returns the configuration every file is layered onto. The
// values match the legacy plugin's defaults.
func Default() *Config {
	stateRoot, err := os.UserCacheDir()
	if err != nil {
		stateRoot = os.TempDir()
	}
	rules := changeset.DefaultRules()
	events := make(map[string]bool)
	for _, kind := range forge.Kinds() {
		events[kind.String()] = true
	}

	return &Config{
		Repository: "AKP48Squared",
		Branch:     branchmatch.Spec{"master"},
		AutoUpdate: false,
		WorkDir:    ".",
		StateDir:   filepath.Join(stateRoot, "bureau-updater"),
		LogLevel:   "info",
		Webhook: WebhookConfig{
			Listen: webhook.DefaultAddress,
			Path:   webhook.DefaultPath,
		},
		Events: events,
		Update: UpdateConfig{
			HotFiles:       rules.HotFiles,
			Manifest:       rules.Manifest,
			SubprojectGlob: subproject.DefaultPattern,
			InstallCommand: append([]string(nil), install.DefaultCommand...),
			InstallTimeout: install.DefaultTimeout,
			CommandTimeout: git.DefaultTimeout,
		},
	}
}

// Load loads the file named by BUREAU_UPDATER_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%w; set it to the path of your updater.yaml or use --config", ErrNoConfig)
	}
	return LoadFile(path)
}

// LoadFile loads, expands, and validates the config file at path.
// Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse layers YAML data onto Default, expands variables, and
// validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buffer.Bytes(), nil
}

// Rules returns the change classification rules.
func (c *Config) Rules() changeset.Rules {
	return changeset.Rules{HotFiles: c.Update.HotFiles, Manifest: c.Update.Manifest}
}

// LockPath is the update lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.StateDir, "update.lock")
}

// WatchdogPath is the restart watchdog record.
func (c *Config) WatchdogPath() string {
	return filepath.Join(c.StateDir, "update.watchdog")
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.WorkDir = expandVars(c.WorkDir, vars)
	vars["WORK_DIR"] = c.WorkDir

	c.StateDir = expandVars(c.StateDir, vars)
	c.Webhook.SecretFile = expandVars(c.Webhook.SecretFile, vars)
	c.Webhook.IdentityFile = expandVars(c.Webhook.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var validate = validator.New()

// Validate checks struct constraints and the cross-field rules the
// tags cannot express. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldError := range fieldErrors {
				errs = append(errs, fmt.Errorf("%s: failed %q check", fieldError.Namespace(), fieldError.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.Webhook.SecretFile == "" && !c.Webhook.AllowUnsigned {
		errs = append(errs, errors.New("webhook.secret_file is required unless webhook.allow_unsigned is set"))
	}
	if _, _, err := net.SplitHostPort(c.Webhook.Listen); c.Webhook.Listen != "" && err != nil {
		errs = append(errs, fmt.Errorf("webhook.listen: %w", err))
	}
	for name := range c.Events {
		if _, ok := forge.ParseKind(name); !ok {
			errs = append(errs, fmt.Errorf("events: unknown event kind %q", name))
		}
	}
	if c.Update.InstallTimeout < 0 {
		errs = append(errs, errors.New("update.install_timeout must not be negative"))
	}
	if c.Update.CommandTimeout < 0 {
		errs = append(errs, errors.New("update.command_timeout must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
