package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/open-edge-platform/pkg-pipeline/internal/config/validate"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/security"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/slice"
	"gopkg.in/yaml.v3"
)

var log = logger.Logger()

// GlobalConfig holds tool-level configuration shared by all subcommands.
type GlobalConfig struct {
	Workers      int    `yaml:"workers" json:"workers"`             // Concurrent test suite workers (1-100, default: 4)
	WorkDir      string `yaml:"work_dir" json:"work_dir"`           // Source tree the pipeline operates on (default: .)
	ArtifactsDir string `yaml:"artifacts_dir" json:"artifacts_dir"` // Root for per-run logs and captures (default: ./artifacts)
	SolverMode   string `yaml:"solver_mode" json:"solver_mode"`     // Dependency classes the solver collects: build-only or full

	Install InstallConfig `yaml:"install" json:"install"` // Installability check settings
	Logging LoggingConfig `yaml:"logging" json:"logging"` // Logging behavior settings
}

// InstallConfig controls the package manager interaction.
type InstallConfig struct {
	Command         string `yaml:"command" json:"command"`                             // Manager invocation for installability checks
	DepsCommand     string `yaml:"deps_command,omitempty" json:"deps_command,omitempty"` // install-deps stage command; empty disables the stage
	Sudo            bool   `yaml:"sudo" json:"sudo"`
	CheckSignatures bool   `yaml:"check_signatures" json:"check_signatures"`
	Keyring         string `yaml:"keyring,omitempty" json:"keyring,omitempty"` // Armored GPG keyring for signature verification
}

// LoggingConfig controls basic logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`                   // debug, info (default), warn, error
	File  string `yaml:"file,omitempty" json:"file,omitempty"` // Optional log file path for teeing output to disk
}

var (
	globalInstance *GlobalConfig
	globalMutex    sync.RWMutex
	once           sync.Once
)

// SetGlobal sets the global config instance (call once at startup in main.go).
func SetGlobal(config *GlobalConfig) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalInstance = config
}

// Global returns the global config instance.
func Global() *GlobalConfig {
	once.Do(func() {
		globalMutex.Lock()
		defer globalMutex.Unlock()
		if globalInstance == nil {
			globalInstance = DefaultGlobalConfig()
		}
	})

	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalInstance
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers:      4,
		WorkDir:      ".",
		ArtifactsDir: "./artifacts",
		SolverMode:   "build-only",

		Install: InstallConfig{
			Command:     "rpm -i --test",
			DepsCommand: "dnf -y builddep",
			Sudo:        false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "pkg-pipeline.log",
		},
	}
}

// LoadGlobalConfig loads configuration from the specified path. A missing
// file yields the defaults.
func LoadGlobalConfig(configPath string) (*GlobalConfig, error) {
	config := DefaultGlobalConfig()

	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		if errors.Is(err, os.ErrPermission) {
			log.Warnf("Config file %s is not accessible (%v); using defaults", configPath, err)
			return config, nil
		}
		log.Errorf("Error accessing config file %s: %v", configPath, err)
		return nil, fmt.Errorf("accessing config file %s: %w", configPath, err)
	}

	data, err := security.SafeReadFile(configPath, security.RejectSymlinks)
	if err != nil {
		log.Errorf("Error reading config file %s: %v", configPath, err)
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			log.Errorf("Error parsing YAML config: %v", err)
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}

		jsonData, err := json.Marshal(config)
		if err != nil {
			log.Errorf("Error converting config to JSON for validation: %v", err)
			return nil, fmt.Errorf("converting config to JSON for validation: %w", err)
		}

		if err := validate.ValidateConfigJSON(jsonData); err != nil {
			log.Errorf("Schema validation failed: %v", err)
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}

	default:
		log.Errorf("Unsupported config file format: %s", ext)
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", ext)
	}

	if err := config.Validate(); err != nil {
		log.Errorf("Config validation failed: %v", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// SaveGlobalConfig saves the configuration to the specified path.
func (gc *GlobalConfig) SaveGlobalConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Errorf("Failed to create config directory: %v", err)
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	jsonData, err := json.Marshal(gc)
	if err != nil {
		log.Errorf("Error converting config to JSON for validation: %v", err)
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		log.Errorf("Config validation failed before save: %v", err)
		return fmt.Errorf("config validation failed before save: %w", err)
	}

	data, err := yaml.Marshal(gc)
	if err != nil {
		log.Errorf("Error marshaling config to YAML: %v", err)
		return fmt.Errorf("marshaling config to YAML: %w", err)
	}

	if err := security.SafeWriteFile(configPath, data, 0600, security.RejectSymlinks); err != nil {
		log.Errorf("Error writing config file: %v", err)
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// SaveGlobalConfigWithComments saves the configuration with descriptive
// comments. Used by the config init subcommand to create a starting file.
func (gc *GlobalConfig) SaveGlobalConfigWithComments(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is empty")
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Errorf("Failed to create config directory: %v", err)
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	jsonData, err := json.Marshal(gc)
	if err != nil {
		log.Errorf("Error converting config to JSON for validation: %v", err)
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		log.Errorf("Config validation failed before save: %v", err)
		return fmt.Errorf("config validation failed before save: %w", err)
	}

	commented := gc.renderCommentedYAML()

	if err := security.SafeWriteFile(configPath, []byte(commented), 0600, security.RejectSymlinks); err != nil {
		log.Errorf("Error writing config file: %v", err)
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// renderCommentedYAML builds a YAML representation of the config with rich comments.
func (gc *GlobalConfig) renderCommentedYAML() string {
	var b strings.Builder

	b.WriteString("# pkg-pipeline - Global Configuration\n")
	b.WriteString("# Tool-level settings that apply across all pipeline runs.\n")
	b.WriteString("# Per-repository stage and suite definitions belong in pipeline.yml.\n\n")

	fmt.Fprintf(&b, "workers: %d\n", gc.Workers)
	b.WriteString("# Number of concurrent test suite workers (1-100, default: 4)\n")
	b.WriteString("# Suites run in parallel up to this limit; stages always run sequentially\n\n")

	fmt.Fprintf(&b, "work_dir: %q\n", gc.WorkDir)
	b.WriteString("# Source tree the pipeline operates on (default: current directory)\n")
	b.WriteString("# All stage commands execute with this as their working directory\n\n")

	fmt.Fprintf(&b, "artifacts_dir: %q\n", gc.ArtifactsDir)
	b.WriteString("# Root directory for per-run stage logs, suite captures and coverage reports\n")
	b.WriteString("# Each run writes under a fresh run-id subdirectory\n\n")

	fmt.Fprintf(&b, "solver_mode: %q\n", gc.SolverMode)
	b.WriteString("# Which dependency classes the solver collects (default: build-only)\n")
	b.WriteString("# - build-only: BuildRequires tags only\n")
	b.WriteString("# - full:       BuildRequires plus runtime Requires of all subpackages\n\n")

	b.WriteString("install:\n")
	fmt.Fprintf(&b, "  command: %q\n", gc.Install.Command)
	b.WriteString("  # Package manager invocation for installability checks\n")
	b.WriteString("  # Built artifacts are appended to this command in a single batch\n")
	if gc.Install.DepsCommand != "" {
		fmt.Fprintf(&b, "  deps_command: %q\n", gc.Install.DepsCommand)
		b.WriteString("  # Command run by the install-deps stage; solved dependencies are appended\n")
	}
	fmt.Fprintf(&b, "  sudo: %v\n", gc.Install.Sudo)
	fmt.Fprintf(&b, "  check_signatures: %v\n", gc.Install.CheckSignatures)
	if gc.Install.Keyring != "" {
		fmt.Fprintf(&b, "  keyring: %q\n", gc.Install.Keyring)
		b.WriteString("  # Armored GPG keyring used to verify artifact signatures\n")
	}
	b.WriteString("\n")

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", gc.Logging.Level)
	b.WriteString("  # Log verbosity level (default: info)\n")
	b.WriteString("  # - debug: Most verbose, shows every executed command\n")
	b.WriteString("  # - info:  Normal output, shows stage progress and results\n")
	b.WriteString("  # - warn:  Only warnings and errors\n")
	b.WriteString("  # - error: Only errors\n")
	if gc.Logging.File != "" {
		fmt.Fprintf(&b, "  file: %q\n", gc.Logging.File)
		b.WriteString("  # Tee logs to this file in addition to stderr (overwritten each run)\n")
	}

	return b.String()
}

// Validate checks the configuration for consistency.
func (gc *GlobalConfig) Validate() error {
	if gc.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0, got %d", gc.Workers)
	}
	if gc.Workers > 100 {
		return fmt.Errorf("workers cannot exceed 100, got %d", gc.Workers)
	}

	if gc.WorkDir == "" {
		return fmt.Errorf("work_dir cannot be empty")
	}
	if gc.ArtifactsDir == "" {
		return fmt.Errorf("artifacts_dir cannot be empty")
	}
	if gc.Install.Command == "" {
		return fmt.Errorf("install.command cannot be empty")
	}

	validModes := []string{"build-only", "full"}
	if !slice.Contains(validModes, gc.SolverMode) {
		return fmt.Errorf("invalid solver mode %q, must be one of: %s",
			gc.SolverMode, strings.Join(validModes, ", "))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slice.Contains(validLevels, gc.Logging.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s",
			gc.Logging.Level, strings.Join(validLevels, ", "))
	}

	if gc.Install.CheckSignatures && gc.Install.Keyring == "" {
		return fmt.Errorf("install.check_signatures requires install.keyring")
	}

	gc.Logging.File = strings.TrimSpace(gc.Logging.File)
	return nil
}

// GetConfigPaths returns the standard configuration file paths to check.
func GetConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()

	paths := []string{
		"pkg-pipeline.yml",
		".pkg-pipeline.yml",
		"pkg-pipeline.yaml",
		".pkg-pipeline.yaml",
	}

	if homeDir != "" {
		paths = append(paths,
			filepath.Join(homeDir, ".pkg-pipeline", "config.yml"),
			filepath.Join(homeDir, ".pkg-pipeline", "config.yaml"),
			filepath.Join(homeDir, ".config", "pkg-pipeline", "config.yml"),
			filepath.Join(homeDir, ".config", "pkg-pipeline", "config.yaml"),
		)
	}

	paths = append(paths,
		"/etc/pkg-pipeline/config.yml",
		"/etc/pkg-pipeline/config.yaml",
	)

	return paths
}

// FindConfigFile searches for a configuration file in standard locations.
func FindConfigFile() string {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Convenience accessors usable anywhere in the codebase.
func Workers() int {
	return Global().Workers
}

func WorkDir() (string, error) {
	workDir, err := filepath.Abs(Global().WorkDir)
	if err != nil {
		log.Errorf("Failed to resolve work directory: %v", err)
		return "", fmt.Errorf("failed to resolve work directory: %w", err)
	}
	return workDir, nil
}

func ArtifactsDir() (string, error) {
	dir, err := filepath.Abs(Global().ArtifactsDir)
	if err != nil {
		log.Errorf("Failed to resolve artifacts directory: %v", err)
		return "", fmt.Errorf("failed to resolve artifacts directory: %w", err)
	}
	return dir, nil
}

func LogLevel() string {
	return Global().Logging.Level
}

func IsDebugMode() bool {
	return Global().Logging.Level == "debug"
}
