package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/ctrlenv/internal/env"
)

type ExportData struct {
	RunMetadata
	Times        []Float              `json:"times"`
	Observations [][]Float            `json:"observations"`
	Actions      [][]Float            `json:"actions"`
	Rewards      []Float              `json:"rewards"`
	Physics      map[string]any       `json:"physics"`
	TaskParams   map[string]any       `json:"task_params"`
	Record       map[string][][]Float `json:"record,omitempty"`
}

// ExportJSON writes a run with its full trace as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, run env.Run, result *env.Result) error {
	data := ExportData{
		RunMetadata:  meta,
		Times:        toFloats(result.Times),
		Observations: make([][]Float, len(result.Observations)),
		Actions:      make([][]Float, len(result.Actions)),
		Rewards:      toFloats(result.Rewards),
		Physics:      toParams(run.Env.Physics().Params().Map()),
		TaskParams:   toParams(run.Env.Task().Params().Map()),
	}
	for i, o := range result.Observations {
		data.Observations[i] = toFloats(o)
	}
	for i, a := range result.Actions {
		data.Actions[i] = toFloats(a)
	}
	if result.Episode != nil {
		data.Record = make(map[string][][]Float)
		for _, name := range result.Episode.Fields() {
			rows := make([][]Float, result.Episode.Steps())
			for i := range rows {
				rows[i] = toFloats(result.Episode.Row(name, i))
			}
			data.Record[name] = rows
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
