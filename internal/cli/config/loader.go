package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configFileNames are the recognized config file names, in priority order.
var configFileNames = []string{"mixsense.yaml", "mixsense.yml"}

// findConfigFile finds the config file to use.
// Priority: explicit path > mixsense.yaml > mixsense.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// configExistsIn checks if a mixsense config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a mixsense config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and filesystem.
// Priority:
//  1. Infer from --data-dir (parent if contains config or named "data")
//  2. Search upward from CWD for mixsense.yaml
//  3. Current working directory
func inferProjectRoot(flags *pflag.FlagSet) string {
	// 1. Infer from --data-dir
	if flags != nil {
		if dataDir, _ := flags.GetString("data-dir"); dataDir != "" && flags.Changed("data-dir") {
			absData, err := filepath.Abs(dataDir)
			if err == nil {
				parent := filepath.Dir(absData)

				// If parent has a config file, it's the project root
				if configExistsIn(parent) {
					return parent
				}

				// If folder is named "data", assume parent is root
				if filepath.Base(absData) == "data" {
					return parent
				}
			}
		}
	}

	// 2. Search upward from CWD for mixsense.yaml
	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	// 3. Default to CWD
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// Infer project root from flags before loading config
	projectRoot := inferProjectRoot(flags)

	// Track paths that were explicitly provided as flags (already relative
	// to CWD). These are converted to absolute paths up front to prevent
	// double-resolution against the project root.
	var flagDataDir, flagProcessedDir, flagStatePath, flagDatabase, flagVenvDir, flagRequirements string
	if flags != nil {
		abs := func(name string) string {
			if !flags.Changed(name) {
				return ""
			}
			v, _ := flags.GetString(name)
			if v == "" {
				return ""
			}
			a, err := filepath.Abs(v)
			if err != nil {
				return v
			}
			return a
		}
		flagDataDir = abs("data-dir")
		flagProcessedDir = abs("processed-dir")
		flagStatePath = abs("state")
		flagVenvDir = abs("venv-dir")
		flagRequirements = abs("requirements")
		if flags.Changed("database") {
			if v, _ := flags.GetString("database"); v != "" {
				// Database path can be :memory: or a file path
				if v != ":memory:" {
					flagDatabase, _ = filepath.Abs(v)
				} else {
					flagDatabase = v
				}
			}
		}
	}

	// If an explicit config file is provided, use its directory as project root
	// (unless a more specific hint was given via flags)
	if cfgFile != "" && projectRoot == inferProjectRoot(nil) {
		if absPath, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(absPath)
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":           DefaultDataDir,
		"processed_dir":      DefaultProcessedDir,
		"state_path":         DefaultStateFile,
		"environment":        DefaultEnv,
		"python":             DefaultPython,
		"venv_dir":           DefaultVenvDir,
		"requirements":       DefaultRequirements,
		"verbose":            false,
		"output":             DefaultOutput,
		"pipeline.window":    DefaultWindow,
		"pipeline.workers":   DefaultWorkers,
		"pipeline.frequency": false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	// Search in project root if no explicit config file provided
	if cfgFile == "" {
		for _, name := range configFileNames {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (MIXSENSE_ prefix)
	// Transform: MIXSENSE_DATA_DIR -> data_dir
	if err := k.Load(env.Provider("MIXSENSE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "MIXSENSE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			switch key {
			case "state":
				// The CLI uses --state for brevity; the config key is state_path
				return "state_path", posflag.FlagVal(flags, f)
			case "window":
				return "pipeline.window", posflag.FlagVal(flags, f)
			case "workers":
				return "pipeline.workers", posflag.FlagVal(flags, f)
			case "frequency":
				return "pipeline.frequency", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Set project root and resolve relative paths
	cfg.ProjectRoot = projectRoot

	// Apply environment-specific overrides before path resolution
	if cfg.Environment != "" && cfg.Environments != nil {
		if envCfg, ok := cfg.Environments[cfg.Environment]; ok {
			if envCfg.DatabasePath != "" {
				cfg.DatabasePath = envCfg.DatabasePath
			}
			if envCfg.DataDir != "" {
				cfg.DataDir = envCfg.DataDir
			}
			if envCfg.ProcessedDir != "" {
				cfg.ProcessedDir = envCfg.ProcessedDir
			}
		}
	}

	// For paths explicitly provided via flags, use the pre-computed
	// absolute paths. For paths from config file or defaults, resolve
	// relative to project root.
	resolve := func(flagVal, cfgVal string) string {
		if flagVal != "" {
			return flagVal
		}
		return resolvePathRelativeTo(cfgVal, projectRoot)
	}
	cfg.DataDir = resolve(flagDataDir, cfg.DataDir)
	cfg.ProcessedDir = resolve(flagProcessedDir, cfg.ProcessedDir)
	cfg.StatePath = resolve(flagStatePath, cfg.StatePath)
	cfg.VenvDir = resolve(flagVenvDir, cfg.VenvDir)
	cfg.Requirements = resolve(flagRequirements, cfg.Requirements)

	if flagDatabase != "" {
		cfg.DatabasePath = flagDatabase
	} else if cfg.DatabasePath != "" && cfg.DatabasePath != ":memory:" {
		cfg.DatabasePath = resolvePathRelativeTo(cfg.DatabasePath, projectRoot)
	}

	if cfg.Pipeline.Window <= 0 {
		cfg.Pipeline.Window = DefaultWindow
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = DefaultWorkers
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
