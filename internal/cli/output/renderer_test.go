package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	return NewRenderer(out, errOut, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want Mode
	}{
		{"explicit text", ModeText, ModeText},
		{"explicit markdown", ModeMarkdown, ModeMarkdown},
		{"explicit json", ModeJSON, ModeJSON},
		{"unknown falls back to auto", Mode("bogus"), ModeMarkdown},
		{"auto on a buffer is markdown", ModeAuto, ModeMarkdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestHeader(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown)
		r.Header(2, "Sessions")
		assert.Equal(t, "## Sessions\n", out.String())
	})

	t.Run("text underlines level one", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText)
		r.Header(1, "Sessions")
		assert.Equal(t, "Sessions\n========\n", out.String())
	})

	t.Run("text deeper levels are plain", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText)
		r.Header(2, "Sessions")
		assert.Equal(t, "Sessions\n", out.String())
	})
}

func TestSuccess(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText)
		r.Success("done")
		assert.Equal(t, "✓ done\n", out.String())
	})

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown)
		r.Success("done")
		assert.Equal(t, "**done**\n", out.String())
	})
}

func TestWarningAndErrorGoToErrWriter(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText)

	r.Warning("careful")
	r.Error("broken")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "! careful")
	assert.Contains(t, errOut.String(), "✗ broken")
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name   string
		status string
		note   string
		want   string
	}{
		{"success marker", "success", "", "  ✓ thing\n"},
		{"failed marker", "failed", "", "  ✗ thing\n"},
		{"warn marker", "warn", "", "  ! thing\n"},
		{"unknown status renders as-is", "pending", "", "  pending thing\n"},
		{"note in parentheses", "success", "120 rows", "  ✓ thing (120 rows)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out, _ := newTestRenderer(ModeText)
			r.StatusLine("thing", tt.status, tt.note)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestJSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"sessions": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["sessions"])
}

func TestRunEventOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(RunEvent{Event: "run_start", RunID: "abc"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "run_start", decoded["event"])
	assert.Equal(t, "abc", decoded["run_id"])
	assert.NotContains(t, decoded, "session")
	assert.NotContains(t, decoded, "error")
}
