package commands

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mixsense-labs/mixsense/internal/cli/output"
)

func TestSplitSelectors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "WhippingCream", []string{"WhippingCream"}},
		{"multiple with spaces", "a/b, c/d ,e", []string{"a/b", "c/d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSelectors(tt.input))
		})
	}
}

func TestReportRunWithoutRunRecord(t *testing.T) {
	var out, errOut bytes.Buffer
	cmdCtx := &CommandContext{
		Renderer: output.NewRenderer(&out, &errOut, output.ModeText),
	}

	reportRun(cmdCtx, &RunOptions{}, nil, errors.New("data directory vanished"))

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "data directory vanished")

	t.Run("nil run and nil error is a no-op", func(t *testing.T) {
		errOut.Reset()
		reportRun(cmdCtx, &RunOptions{}, nil, nil)
		assert.Empty(t, errOut.String())
	})
}

func TestRunCommandMetadata(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("select"))
	assert.NotNil(t, cmd.Flags().Lookup("watch"))
	assert.NotNil(t, cmd.Flags().Lookup("json"))
}

func TestListCommandMetadata(t *testing.T) {
	cmd := NewListCommand()

	assert.Equal(t, "list", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("select"))
	assert.NotNil(t, cmd.Flags().Lookup("json"))
}

func TestDoctorCommandMetadata(t *testing.T) {
	cmd := NewDoctorCommand()

	assert.Equal(t, "doctor", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("format"))
}

func TestSetupCommandMetadata(t *testing.T) {
	cmd := NewSetupCommand()

	assert.Equal(t, "setup", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
}
