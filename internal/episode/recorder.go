// Package episode records per-step data of a control episode and packs it
// into dense, time-ordered columns.
package episode

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctrlenv/internal/dynamo"
)

// Standard field names written by tasks before every physics step.
const (
	State       = "state"
	Action      = "action"
	Time        = "time"
	Observation = "observation"
	Reward      = "reward"
	Reference   = "reference"
)

// Field is one named column of fixed width. Scalars have width 1.
type Field struct {
	Name  string
	Width int
}

// Record holds the values of one step keyed by field name.
type Record map[string][]float64

// StepFields is the schema tasks record: state, action, time, observation,
// reward and reference.
func StepFields(stateDim, actionDim, refDim int) []Field {
	return []Field{
		{State, stateDim},
		{Action, actionDim},
		{Time, 1},
		{Observation, refDim + stateDim},
		{Reward, 1},
		{Reference, refDim},
	}
}

// Recorder is an append-only sequence of records sharing one schema.
// Records are only checked against the schema by Pack.
type Recorder struct {
	schema  []Field
	records []Record
}

// NewRecorder panics on duplicate field names or non-positive widths.
func NewRecorder(fields ...Field) *Recorder {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			panic(fmt.Sprintf("episode: duplicate field %q", f.Name))
		}
		if f.Width < 1 {
			panic(fmt.Sprintf("episode: field %q has width %d", f.Name, f.Width))
		}
		seen[f.Name] = true
	}
	return &Recorder{schema: append([]Field(nil), fields...)}
}

func (r *Recorder) Schema() []Field {
	return append([]Field(nil), r.schema...)
}

// Append stores a copy of rec.
func (r *Recorder) Append(rec Record) {
	c := make(Record, len(rec))
	for k, v := range rec {
		c[k] = append([]float64(nil), v...)
	}
	r.records = append(r.records, c)
}

func (r *Recorder) Len() int { return len(r.records) }

func (r *Recorder) Reset() { r.records = r.records[:0] }

// Pack stacks every field across records in insertion order. It fails with
// dynamo.ErrRecorder when the recorder is empty or a record does not match
// the schema.
func (r *Recorder) Pack() (Packed, error) {
	if len(r.records) == 0 {
		return nil, fmt.Errorf("%w: nothing recorded", dynamo.ErrRecorder)
	}
	for i, rec := range r.records {
		if err := r.check(rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", dynamo.ErrRecorder, i, err)
		}
	}

	n := len(r.records)
	out := make(Packed, len(r.schema))
	for _, f := range r.schema {
		data := make([]float64, 0, n*f.Width)
		for _, rec := range r.records {
			data = append(data, rec[f.Name]...)
		}
		out[f.Name] = mat.NewDense(n, f.Width, data)
	}
	return out, nil
}

func (r *Recorder) check(rec Record) error {
	if len(rec) != len(r.schema) {
		return fmt.Errorf("fields [%s] do not match schema [%s]", keys(rec), r.names())
	}
	for _, f := range r.schema {
		v, ok := rec[f.Name]
		if !ok {
			return fmt.Errorf("missing field %q", f.Name)
		}
		if len(v) != f.Width {
			return fmt.Errorf("field %q has width %d, expected %d", f.Name, len(v), f.Width)
		}
	}
	return nil
}

func (r *Recorder) names() string {
	names := make([]string, len(r.schema))
	for i, f := range r.schema {
		names[i] = f.Name
	}
	return strings.Join(names, " ")
}

func keys(rec Record) string {
	names := make([]string, 0, len(rec))
	for k := range rec {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
