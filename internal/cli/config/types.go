// Package config provides configuration management for the mixsense CLI.
//
// Configuration is layered: built-in defaults, then mixsense.yaml found
// at the project root, then MIXSENSE_* environment variables, then CLI
// flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string               `koanf:"data_dir"`
	ProcessedDir string               `koanf:"processed_dir"`
	DatabasePath string               `koanf:"database"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Python       string               `koanf:"python"`
	VenvDir      string               `koanf:"venv_dir"`
	Requirements string               `koanf:"requirements"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Pipeline     PipelineConfig       `koanf:"pipeline"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the inferred project root; relative config paths
	// resolve against it.
	ProjectRoot string `koanf:"-"`
}

// PipelineConfig holds preprocessing and feature options.
type PipelineConfig struct {
	Window    int  `koanf:"window"`
	Frequency bool `koanf:"frequency"`
	Workers   int  `koanf:"workers"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	DatabasePath string `koanf:"database"`
	DataDir      string `koanf:"data_dir"`
	ProcessedDir string `koanf:"processed_dir"`
}

// Default configuration values.
const (
	DefaultDataDir      = "data"
	DefaultProcessedDir = "processed_data"
	DefaultStateFile    = ".mixsense/state.db"
	DefaultEnv          = "dev"
	DefaultPython       = "python3"
	DefaultVenvDir      = "venv"
	DefaultRequirements = "requirements.txt"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultWindow       = 20
	DefaultWorkers      = 4
)
