package storage

import (
	"encoding/json"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orrery/internal/experiment"
)

type ExportData struct {
	ID              string             `json:"id,omitempty"`
	Scenario        string             `json:"scenario"`
	Integrator      string             `json:"integrator"`
	Bodies          []string           `json:"bodies"`
	Frames          int                `json:"frames"`
	Elapsed         float64            `json:"elapsed"`
	Samples         int                `json:"samples"`
	Times           []float64          `json:"times"`
	Energy          []float64          `json:"energy"`
	EnergyDrift     []float64          `json:"energy_drift"`
	Momentum        []float64          `json:"momentum"`
	AngularMomentum []float64          `json:"angular_momentum"`
	Positions       [][][3]float64     `json:"positions"`
	Metrics         map[string]float64 `json:"metrics"`
}

func NewExportData(id string, result *experiment.Result) ExportData {
	data := ExportData{
		ID:              id,
		Scenario:        result.Scenario,
		Integrator:      result.Integrator,
		Bodies:          result.Bodies,
		Frames:          result.Frames,
		Elapsed:         result.Elapsed,
		Samples:         len(result.Times),
		Times:           result.Times,
		Energy:          result.Energy,
		EnergyDrift:     result.EnergyDrift,
		Momentum:        result.Momentum,
		AngularMomentum: result.AngularMomentum,
		Positions:       make([][][3]float64, len(result.Positions)),
		Metrics:         result.Metrics,
	}
	for i, sample := range result.Positions {
		data.Positions[i] = make([][3]float64, len(sample))
		for j, p := range sample {
			data.Positions[i][j] = vecArray(p)
		}
	}
	return data
}

func vecArray(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func WriteJSON(w io.Writer, id string, result *experiment.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(id, result))
}

func ExportJSON(path, id string, result *experiment.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, id, result)
}

func ExportJSONStdout(id string, result *experiment.Result) error {
	return WriteJSON(os.Stdout, id, result)
}
