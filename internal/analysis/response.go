package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlenv/internal/env"
)

// Trace is one position coordinate and its reference over time.
type Trace struct {
	Times     []float64
	Reference []float64
	Position  []float64
}

// FromResult extracts coordinate j from observations laid out as
// [reference, state].
func FromResult(res *env.Result, refDim, j int) (Trace, error) {
	if j < 0 || j >= refDim {
		return Trace{}, fmt.Errorf("coordinate %d out of range for reference of size %d", j, refDim)
	}
	tr := Trace{
		Times:     append([]float64(nil), res.Times...),
		Reference: make([]float64, len(res.Observations)),
		Position:  make([]float64, len(res.Observations)),
	}
	for i, obs := range res.Observations {
		tr.Reference[i] = obs[j]
		tr.Position[i] = obs[refDim+j]
	}
	return tr, nil
}

// FromTable extracts coordinate j from a stored episode trace with columns
// time, ref<j> and x<j>.
func FromTable(header []string, rows [][]float64, j int) (Trace, error) {
	col := func(name string) (int, error) {
		for i, h := range header {
			if h == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("episode has no %s column", name)
	}
	ti, err := col("time")
	if err != nil {
		return Trace{}, err
	}
	ri, err := col(fmt.Sprintf("ref%d", j))
	if err != nil {
		return Trace{}, err
	}
	xi, err := col(fmt.Sprintf("x%d", j))
	if err != nil {
		return Trace{}, err
	}

	tr := Trace{
		Times:     make([]float64, len(rows)),
		Reference: make([]float64, len(rows)),
		Position:  make([]float64, len(rows)),
	}
	for i, row := range rows {
		tr.Times[i], tr.Reference[i], tr.Position[i] = row[ti], row[ri], row[xi]
	}
	return tr, nil
}

type ResponseInfo struct {
	StepTime     float64
	From         float64
	To           float64
	RiseTime     float64
	Overshoot    float64
	SettlingTime float64
	SteadyError  float64
}

// Response analyses the response to the last reference change, or to the
// initial offset when the reference never changes. band is the settling
// band as a fraction of the step size. Times that are never reached are
// NaN.
func Response(tr Trace, band float64) (ResponseInfo, error) {
	n := len(tr.Times)
	if n < 2 || len(tr.Reference) != n || len(tr.Position) != n {
		return ResponseInfo{}, fmt.Errorf("trace needs at least two aligned samples")
	}

	k := 0
	for i := n - 1; i > 0; i-- {
		if tr.Reference[i] != tr.Reference[i-1] {
			k = i
			break
		}
	}

	info := ResponseInfo{
		StepTime:     tr.Times[k],
		From:         tr.Position[k],
		To:           tr.Reference[n-1],
		RiseTime:     math.NaN(),
		SettlingTime: math.NaN(),
		SteadyError:  math.Abs(tr.Position[n-1] - tr.Reference[n-1]),
	}
	span := info.To - info.From
	if span == 0 {
		info.RiseTime = 0
		info.SettlingTime = 0
		return info, nil
	}

	t10, t90 := math.NaN(), math.NaN()
	for i := k; i < n; i++ {
		frac := (tr.Position[i] - info.From) / span
		if math.IsNaN(t10) && frac >= 0.1 {
			t10 = tr.Times[i]
		}
		if math.IsNaN(t90) && frac >= 0.9 {
			t90 = tr.Times[i]
		}
		if over := frac - 1; over > info.Overshoot {
			info.Overshoot = over
		}
	}
	info.RiseTime = t90 - t10

	tol := band * math.Abs(span)
	settled := n
	for i := n - 1; i >= k; i-- {
		if math.Abs(tr.Position[i]-info.To) > tol {
			break
		}
		settled = i
	}
	if settled < n {
		info.SettlingTime = tr.Times[settled] - info.StepTime
	}
	return info, nil
}
