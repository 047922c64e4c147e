package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/ctrlenv/internal/config"
	"github.com/san-kum/ctrlenv/internal/env"
	"github.com/san-kum/ctrlenv/internal/episode"
)

const (
	metadataFile = "metadata.json"
	episodeFile  = "episode.csv"
	recordFile   = "record.csv"
	physicsFile  = "physics.toml"
	taskFile     = "task.toml"
	configFile   = "config.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string           `json:"id"`
	Environment string           `json:"environment"`
	Task        string           `json:"task"`
	Controller  string           `json:"controller"`
	Timestamp   time.Time        `json:"timestamp"`
	DtSim       float64          `json:"dt_sim"`
	DtCtr       float64          `json:"dt_ctr"`
	TimeLimit   float64          `json:"time_limit"`
	Discount    float64          `json:"discount"`
	Steps       int              `json:"steps"`
	Return      Float            `json:"return"`
	Diverged    bool             `json:"diverged"`
	Cause       string           `json:"cause,omitempty"`
	Metrics     map[string]Float `json:"metrics"`
}

// Metadata summarises one finished episode.
func Metadata(cfg *config.Config, run env.Run, result *env.Result) RunMetadata {
	meta := RunMetadata{
		ID:          uuid.NewString(),
		Environment: cfg.Environment,
		Task:        run.Env.Task().Name(),
		Controller:  cfg.Controller.Type,
		Timestamp:   time.Now().UTC(),
		DtSim:       run.Env.Physics().Timestep(),
		DtCtr:       run.Env.ControlTimestep(),
		TimeLimit:   run.Env.TimeLimit(),
		Discount:    cfg.Discount,
		Steps:       result.Steps,
		Return:      Float(result.Return),
		Metrics:     toMetrics(result.Metrics),
	}
	if result.Divergence != nil {
		meta.Diverged = true
		meta.Cause = result.Divergence.Error()
	}
	return meta
}

// Save writes one run directory: metadata, the episode trace, the debug
// recording when present, both parameter files and the run config.
func (s *Store) Save(cfg *config.Config, run env.Run, result *env.Result) (string, error) {
	meta := Metadata(cfg, run, result)
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	refDim := len(result.Observations[0]) - run.Env.Physics().StateDim()
	if err := writeCSV(filepath.Join(runDir, episodeFile), traceHeader(refDim, run), traceRows(result)); err != nil {
		return "", err
	}
	if result.Episode != nil {
		order := recordOrder()
		if err := writeCSV(filepath.Join(runDir, recordFile), result.Episode.Header(order), result.Episode.Table(order)); err != nil {
			return "", err
		}
	}
	if err := run.Env.Physics().WriteConfig(filepath.Join(runDir, physicsFile)); err != nil {
		return "", err
	}
	if err := run.Env.Task().WriteConfig(filepath.Join(runDir, taskFile)); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func recordOrder() []episode.Field {
	names := []string{episode.Time, episode.Reference, episode.State, episode.Action, episode.Reward, episode.Observation}
	order := make([]episode.Field, len(names))
	for i, n := range names {
		order[i] = episode.Field{Name: n, Width: 1}
	}
	return order
}

func traceHeader(refDim int, run env.Run) []string {
	header := []string{"time"}
	for i := 0; i < refDim; i++ {
		header = append(header, fmt.Sprintf("ref%d", i))
	}
	for i := 0; i < run.Env.Physics().StateDim(); i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < run.Env.Physics().ControlDim(); i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	return append(header, "reward")
}

// traceRows puts one row per observation. The action is the one chosen
// from that observation (zeros on the last row) and the reward is the one
// received on arriving at it (0 on the first row).
func traceRows(result *env.Result) [][]float64 {
	numControls := 0
	if len(result.Actions) > 0 {
		numControls = len(result.Actions[0])
	}
	rows := make([][]float64, len(result.Observations))
	for i, obs := range result.Observations {
		row := append([]float64{result.Times[i]}, obs...)
		if i < len(result.Actions) {
			row = append(row, result.Actions[i]...)
		} else {
			row = append(row, make([]float64, numControls)...)
		}
		reward := 0.0
		if i > 0 {
			reward = result.Rewards[i-1]
		}
		rows[i] = append(row, reward)
	}
	return rows
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for j, val := range row {
			record[j] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadEpisode reads back the episode trace as its header and rows.
func (s *Store) LoadEpisode(runID string) ([]string, [][]float64, error) {
	return readCSV(filepath.Join(s.baseDir, runID, episodeFile))
}

// LoadRecord reads back the debug recording. It fails when the run had
// debug off.
func (s *Store) LoadRecord(runID string) ([]string, [][]float64, error) {
	return readCSV(filepath.Join(s.baseDir, runID, recordFile))
}

// PhysicsPath and TaskPath locate the parameter files of a run, for
// passing to ReadConfig.
func (s *Store) PhysicsPath(runID string) string {
	return filepath.Join(s.baseDir, runID, physicsFile)
}

func (s *Store) TaskPath(runID string) string {
	return filepath.Join(s.baseDir, runID, taskFile)
}

func readCSV(path string) ([]string, [][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, [][]float64{}, nil
	}

	rows := make([][]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		row := make([]float64, len(records[i]))
		for j, field := range records[i] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), i+1, err)
			}
			row[j] = val
		}
		rows = append(rows, row)
	}
	return records[0], rows, nil
}
