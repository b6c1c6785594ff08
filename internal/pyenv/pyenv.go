// Package pyenv manages the project's Python virtual environment:
// creating it when absent and installing dependencies from the
// requirements file.
package pyenv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Runner executes an external command and returns its combined output.
// It is injectable so tests can observe invocations without spawning
// processes.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Manager prepares and inspects the virtual environment.
type Manager struct {
	// Python is the interpreter used to create the environment.
	Python string
	// VenvDir is the virtual environment directory.
	VenvDir string
	// Requirements is the pip requirements file; installation is
	// skipped when it does not exist.
	Requirements string

	// Run executes commands; defaults to os/exec.
	Run Runner

	logger *slog.Logger
}

// New creates a manager with the default command runner.
func New(python, venvDir, requirements string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		Python:       python,
		VenvDir:      venvDir,
		Requirements: requirements,
		Run:          execRunner,
		logger:       logger,
	}
}

// VenvExists reports whether the virtual environment directory exists.
func (m *Manager) VenvExists() bool {
	info, err := os.Stat(m.VenvDir)
	return err == nil && info.IsDir()
}

// BinPath returns the path of a tool inside the virtual environment.
func (m *Manager) BinPath(tool string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(m.VenvDir, "Scripts", tool+".exe")
	}
	return filepath.Join(m.VenvDir, "bin", tool)
}

// Ensure creates the virtual environment if it is missing and installs
// dependencies from the requirements file when one exists.
func (m *Manager) Ensure(ctx context.Context) error {
	if !m.VenvExists() {
		if err := m.Create(ctx); err != nil {
			return err
		}
	}

	if _, err := os.Stat(m.Requirements); os.IsNotExist(err) {
		m.logger.Debug("no requirements file, skipping install", "path", m.Requirements)
		return nil
	}

	return m.Install(ctx)
}

// Create creates the virtual environment directory.
func (m *Manager) Create(ctx context.Context) error {
	m.logger.Info("creating virtual environment", "python", m.Python, "dir", m.VenvDir)

	out, err := m.Run(ctx, m.Python, "-m", "venv", m.VenvDir)
	if err != nil {
		return fmt.Errorf("failed to create virtual environment %s: %w: %s",
			m.VenvDir, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Install installs dependencies from the requirements file using the
// environment's pip.
func (m *Manager) Install(ctx context.Context) error {
	pip := m.BinPath("pip")
	m.logger.Info("installing dependencies", "pip", pip, "requirements", m.Requirements)

	out, err := m.Run(ctx, pip, "install", "-r", m.Requirements)
	if err != nil {
		return fmt.Errorf("failed to install dependencies from %s: %w: %s",
			m.Requirements, err, strings.TrimSpace(string(out)))
	}
	return nil
}
