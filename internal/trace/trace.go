// Package trace describes a recorded operation: the step sequence a catalog
// server returned for one insert, delete, search or range query.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/highlight"
)

// ErrNoSteps is returned when a response carries no steps to record.
var ErrNoSteps = errors.New("response has no steps")

// Operation is the kind of tree operation a trace records.
type Operation string

const (
	OpInsert  Operation = "insert"
	OpDelete  Operation = "delete"
	OpSearch  Operation = "search"
	OpRange   Operation = "range"
	OpUnknown Operation = "unknown"
)

// ValidOperations lists the accepted operation names.
var ValidOperations = []Operation{OpInsert, OpDelete, OpSearch, OpRange, OpUnknown}

// ParseOperation validates an operation name.
func ParseOperation(s string) (Operation, error) {
	for _, op := range ValidOperations {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("invalid operation: %s (valid: %v)", s, ValidOperations)
}

// Trace is one stored step sequence.
type Trace struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Operation   Operation      `json:"operation"`
	Target      string         `json:"target,omitempty"`
	StartAtEnd  bool           `json:"start_at_end,omitempty"`
	Steps       []catalog.Step `json:"steps"`
	Fingerprint string         `json:"fingerprint"`
	ImportedAt  time.Time      `json:"imported_at"`
}

// Fingerprint hashes the step content. Two traces with the same steps have the
// same fingerprint regardless of name or target.
func Fingerprint(steps []catalog.Step) (string, error) {
	data, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("encoding steps: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// InferOperation guesses the operation from the events its steps describe.
func InferOperation(steps []catalog.Step) Operation {
	var tags highlight.Tags
	for _, s := range steps {
		tags |= highlight.TagsFor(s)
	}
	m := highlight.ModeOf(tags)
	switch {
	case m.Range:
		return OpRange
	case m.Delete:
		return OpDelete
	case m.Insert || tags.Has(highlight.TagSplit):
		return OpInsert
	case m.Found || len(steps) > 0:
		return OpSearch
	default:
		return OpUnknown
	}
}

// FromResponse builds a trace from a decoded server response. The target is
// the record the response resolved to, if any.
func FromResponse(resp *catalog.Response, name string, now time.Time) (*Trace, error) {
	if resp == nil || len(resp.Steps) == 0 {
		return nil, ErrNoSteps
	}

	fp, err := Fingerprint(resp.Steps)
	if err != nil {
		return nil, err
	}

	t := &Trace{
		ID:          "tr-" + fp[:8],
		Name:        name,
		Operation:   InferOperation(resp.Steps),
		Steps:       resp.Steps,
		Fingerprint: fp,
		ImportedAt:  now.UTC(),
	}
	if resp.Book != nil {
		t.Target = resp.Book.ID
	}
	if t.Name == "" {
		t.Name = resp.Message
	}
	return t, nil
}

// Keys returns every distinct key id that appears in any snapshot, in order
// of first appearance.
func (t *Trace) Keys() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range t.Steps {
		s.Tree.Walk(func(n *catalog.TreeNode, _ int) {
			for _, k := range n.Keys {
				if !seen[k.ID] {
					seen[k.ID] = true
					ids = append(ids, k.ID)
				}
			}
		})
	}
	return ids
}

// Step returns step i, accepting negative indexes from the end.
func (t *Trace) Step(i int) (catalog.Step, error) {
	n := len(t.Steps)
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return catalog.Step{}, fmt.Errorf("step %d out of range (trace has %d steps)", i, n)
	}
	return t.Steps[j], nil
}
