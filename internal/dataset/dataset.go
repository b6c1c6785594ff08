// Package dataset discovers recorded sensor sessions on disk and parses
// their label files.
//
// The expected layout under the data directory is
//
//	data/<recipe>/<session>/data.data
//	data/<recipe>/<temperature>/<session>/data.data
//
// where the temperature level is optional (used by recipes recorded at
// multiple temperatures). A session directory may also carry a
// labels.label file with readiness annotations.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// DataFileName is the raw sensor CSV inside a session directory.
	DataFileName = "data.data"
	// LabelsFileName is the optional label CSV inside a session directory.
	LabelsFileName = "labels.label"
)

// Session identifies one recorded session and its files.
type Session struct {
	Recipe      string
	Temperature string // empty for single-temperature recipes
	Name        string
	DataPath    string
	LabelsPath  string
	HasLabels   bool
}

// Key returns the canonical selector for a session, e.g.
// "EggWhitesWhisking/Cold/session_01".
func (s Session) Key() string {
	parts := []string{s.Recipe}
	if s.Temperature != "" {
		parts = append(parts, s.Temperature)
	}
	parts = append(parts, s.Name)
	return strings.Join(parts, "/")
}

// TableName returns a database-safe table name for the session.
func (s Session) TableName() string {
	return sanitizeIdentifier(s.Key())
}

func sanitizeIdentifier(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Discover walks the data directory and returns all sessions that contain
// a data file, sorted by key. A missing data directory yields an empty
// result rather than an error.
func Discover(dataDir string) ([]Session, error) {
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return nil, nil
	}

	var sessions []Session
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != DataFileName {
			return nil
		}

		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")

		s := Session{DataPath: path}
		switch len(parts) {
		case 2:
			s.Recipe, s.Name = parts[0], parts[1]
		case 3:
			s.Recipe, s.Temperature, s.Name = parts[0], parts[1], parts[2]
		default:
			// data file outside the recognized nesting; ignore it
			return nil
		}

		labelsPath := filepath.Join(filepath.Dir(path), LabelsFileName)
		if _, err := os.Stat(labelsPath); err == nil {
			s.LabelsPath = labelsPath
			s.HasLabels = true
		}

		sessions = append(sessions, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Key() < sessions[j].Key() })
	return sessions, nil
}

// Filter returns the sessions whose key matches one of the selectors.
// A selector matches a session if it equals the key or is a prefix of it
// at a path boundary (so "EggWhitesWhisking/Cold" selects every session
// recorded cold).
func Filter(sessions []Session, selectors []string) []Session {
	if len(selectors) == 0 {
		return sessions
	}
	var out []Session
	for _, s := range sessions {
		key := s.Key()
		for _, sel := range selectors {
			sel = strings.Trim(strings.TrimSpace(sel), "/")
			if sel == "" {
				continue
			}
			if key == sel || strings.HasPrefix(key, sel+"/") {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// LabelSpan is one annotated time range from a labels file: rows with
// Start <= Time <= Start+Length carry the span's label.
type LabelSpan struct {
	Start  float64
	Length float64
	Label  string
}

// End returns the inclusive end time of the span.
func (l LabelSpan) End() float64 {
	return l.Start + l.Length
}

// Label file column headers.
const (
	labelColTime   = "Time(Seconds)"
	labelColLength = "Length(Seconds)"
	labelColLabel  = "Label(string)"
)

// LoadLabels reads a labels.label CSV.
func LoadLabels(path string) ([]LabelSpan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseLabels(f)
}

// ParseLabels parses label spans from CSV content.
func ParseLabels(r io.Reader) ([]LabelSpan, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read labels header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{labelColTime, labelColLength, labelColLabel} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("labels file missing column %q", required)
		}
	}

	var spans []LabelSpan
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read labels row %d: %w", line, err)
		}

		start, err := strconv.ParseFloat(strings.TrimSpace(record[idx[labelColTime]]), 64)
		if err != nil {
			return nil, fmt.Errorf("labels row %d: invalid start time: %w", line, err)
		}
		length, err := strconv.ParseFloat(strings.TrimSpace(record[idx[labelColLength]]), 64)
		if err != nil {
			return nil, fmt.Errorf("labels row %d: invalid length: %w", line, err)
		}

		spans = append(spans, LabelSpan{
			Start:  start,
			Length: length,
			Label:  strings.TrimSpace(record[idx[labelColLabel]]),
		})
	}

	return spans, nil
}
