// Package storage persists traces: a JSONL file is the source of truth and a
// SQLite database is a disposable query cache rebuilt from it.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/btreeplay/internal/trace"
)

// MaxJSONLLineCapacity is the maximum buffer size for one JSONL line. A trace
// holds a full snapshot per step, so lines get long.
const MaxJSONLLineCapacity = 16 * 1024 * 1024

// Import actions.
const (
	ActionNew       = "new"
	ActionDuplicate = "duplicate"
)

// ImportResult reports what Import did with a trace.
type ImportResult struct {
	Trace  trace.Trace
	Action string // new, duplicate
}

// ReadAll reads all traces from a JSONL file. A missing file holds no traces.
func ReadAll(path string) ([]trace.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening traces file: %w", err)
	}
	defer f.Close()

	var traces []trace.Trace
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var t trace.Trace
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		traces = append(traces, t)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading traces file: %w", err)
	}
	return traces, nil
}

// Append adds a trace to the end of a JSONL file.
func Append(path string, t trace.Trace) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening traces file for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

// WriteAll writes all traces to a JSONL file, replacing existing content.
func WriteAll(path string, traces []trace.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating traces file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, t := range traces {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encoding trace %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing trace %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing traces file: %w", err)
	}
	return nil
}

// FindByID searches for a trace by ID.
func FindByID(traces []trace.Trace, id string) (int, bool) {
	for i, t := range traces {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

// FindByFingerprint searches for a trace with identical steps.
func FindByFingerprint(traces []trace.Trace, fp string) (int, bool) {
	if fp == "" {
		return -1, false
	}
	for i, t := range traces {
		if t.Fingerprint == fp {
			return i, true
		}
	}
	return -1, false
}

// GenerateUniqueID returns an ID that doesn't conflict with existing traces.
// If the base ID exists, appends -2, -3, etc.
func GenerateUniqueID(traces []trace.Trace, baseID string) string {
	if _, found := FindByID(traces, baseID); !found {
		return baseID
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", baseID, i)
		if _, found := FindByID(traces, candidate); !found {
			return candidate
		}
	}
}

// Import appends t unless a trace with the same steps is already stored, in
// which case the stored trace is returned.
func Import(path string, t trace.Trace) (ImportResult, error) {
	traces, err := ReadAll(path)
	if err != nil {
		return ImportResult{}, err
	}
	if i, ok := FindByFingerprint(traces, t.Fingerprint); ok {
		return ImportResult{Trace: traces[i], Action: ActionDuplicate}, nil
	}

	t.ID = GenerateUniqueID(traces, t.ID)
	if err := Append(path, t); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Trace: t, Action: ActionNew}, nil
}

// Delete removes the trace with the given ID and returns it.
func Delete(path, id string) (trace.Trace, bool, error) {
	traces, err := ReadAll(path)
	if err != nil {
		return trace.Trace{}, false, err
	}
	i, ok := FindByID(traces, id)
	if !ok {
		return trace.Trace{}, false, nil
	}
	removed := traces[i]
	traces = append(traces[:i], traces[i+1:]...)
	if err := WriteAll(path, traces); err != nil {
		return trace.Trace{}, false, err
	}
	return removed, true, nil
}
