package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/config"
	"github.com/san-kum/orrery/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
	scenarioFile = "scenario.yaml"
)

// ErrMalformedSeries indicates a series file that does not match its
// metadata.
var ErrMalformedSeries = errors.New("storage: malformed series")

var seriesColumns = []string{"time", "energy", "energy_drift", "momentum", "angular_momentum"}

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
	ID            string             `json:"id"`
	Scenario      string             `json:"scenario"`
	Timestamp     time.Time          `json:"timestamp"`
	Integrator    string             `json:"integrator"`
	SubIterations int                `json:"sub_iterations"`
	FrameDt       float64            `json:"frame_dt"`
	Duration      float64            `json:"duration"`
	Elapsed       float64            `json:"elapsed"`
	Frames        int                `json:"frames"`
	Singularities int                `json:"singularities"`
	Bodies        []string           `json:"bodies"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Save writes a run directory holding metadata.json, the sampled series as
// series.csv and the scenario that produced it.
func (s *Store) Save(sc *config.Scenario, result *experiment.Result) (string, error) {
	now := time.Now()
	runID, err := s.createRunDir(fmt.Sprintf("%s_%s_%d", sc.Name, result.Integrator, now.UnixNano()))
	if err != nil {
		return "", err
	}
	runDir := filepath.Join(s.baseDir, runID)

	meta := RunMetadata{
		ID:            runID,
		Scenario:      sc.Name,
		Timestamp:     now,
		Integrator:    result.Integrator,
		SubIterations: sc.SubIterations,
		FrameDt:       sc.FrameDt,
		Duration:      sc.Duration,
		Elapsed:       result.Elapsed,
		Frames:        result.Frames,
		Singularities: result.Singularities,
		Bodies:        result.Bodies,
		Metrics:       result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, scenarioFile), sc); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

// createRunDir makes a fresh directory for id, suffixing it on collision.
func (s *Store) createRunDir(id string) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	runID := id
	for n := 1; ; n++ {
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			return runID, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		runID = fmt.Sprintf("%s-%d", id, n)
	}
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

func writeSeries(path string, result *experiment.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string(nil), seriesColumns...)
	for _, name := range result.Bodies {
		header = append(header, name+"_x", name+"_y", name+"_z")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range result.Times {
		row := []string{
			formatFloat(result.Times[i]),
			formatFloat(result.Energy[i]),
			formatFloat(result.EnergyDrift[i]),
			formatFloat(result.Momentum[i]),
			formatFloat(result.AngularMomentum[i]),
		}
		for _, p := range result.Positions[i] {
			row = append(row, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run, oldest first.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
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

func (s *Store) LoadScenario(runID string) (*config.Scenario, error) {
	return config.Load(filepath.Join(s.baseDir, runID, scenarioFile))
}

// LoadResult rebuilds the sampled result of a stored run.
func (s *Store) LoadResult(runID string) (*experiment.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	width := len(seriesColumns) + 3*len(meta.Bodies)
	result := &experiment.Result{
		Scenario:      meta.Scenario,
		Integrator:    meta.Integrator,
		Bodies:        meta.Bodies,
		Metrics:       meta.Metrics,
		Frames:        meta.Frames,
		Elapsed:       meta.Elapsed,
		Singularities: meta.Singularities,
	}
	if len(records) == 0 {
		return result, nil
	}
	if len(records[0]) != width {
		return nil, fmt.Errorf("%w: %s has %d columns, want %d", ErrMalformedSeries, runID, len(records[0]), width)
	}

	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedSeries, runID, line+2, err)
			}
			vals[j] = v
		}

		result.Times = append(result.Times, vals[0])
		result.Energy = append(result.Energy, vals[1])
		result.EnergyDrift = append(result.EnergyDrift, vals[2])
		result.Momentum = append(result.Momentum, vals[3])
		result.AngularMomentum = append(result.AngularMomentum, vals[4])

		positions := make([]r3.Vec, len(meta.Bodies))
		for b := range positions {
			k := len(seriesColumns) + 3*b
			positions[b] = r3.Vec{X: vals[k], Y: vals[k+1], Z: vals[k+2]}
		}
		result.Positions = append(result.Positions, positions)
	}

	return result, nil
}
