package episode

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Packed maps field names to dense arrays with one row per recorded step.
type Packed map[string]*mat.Dense

// Steps is the number of rows shared by every field.
func (p Packed) Steps() int {
	for _, m := range p {
		r, _ := m.Dims()
		return r
	}
	return 0
}

// Column returns column j of field name, i.e. the time series of one
// component. It returns nil for an unknown field.
func (p Packed) Column(name string, j int) []float64 {
	m, ok := p[name]
	if !ok {
		return nil
	}
	return mat.Col(nil, j, m)
}

// Row returns the values of field name at step i.
func (p Packed) Row(name string, i int) []float64 {
	m, ok := p[name]
	if !ok {
		return nil
	}
	return mat.Row(nil, i, m)
}

// Header names every scalar column in the order used by Table: fields in
// order, each expanded to name_j when wider than one.
func (p Packed) Header(order []Field) []string {
	var header []string
	for _, f := range order {
		m, ok := p[f.Name]
		if !ok {
			continue
		}
		_, c := m.Dims()
		if c == 1 {
			header = append(header, f.Name)
			continue
		}
		for j := 0; j < c; j++ {
			header = append(header, fmt.Sprintf("%s_%d", f.Name, j))
		}
	}
	return header
}

// Table flattens the fields into rows matching Header.
func (p Packed) Table(order []Field) [][]float64 {
	n := p.Steps()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		for _, f := range order {
			if m, ok := p[f.Name]; ok {
				rows[i] = append(rows[i], mat.Row(nil, i, m)...)
			}
		}
	}
	return rows
}

// Fields lists the packed field names alphabetically.
func (p Packed) Fields() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
