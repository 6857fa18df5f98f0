// Package export renders stored runs as JSON documents and SVG pictures.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
)

type FrameData struct {
	Step       int         `json:"step"`
	Time       float64     `json:"time"`
	Positions  [][]float64 `json:"positions"`
	Velocities [][]float64 `json:"velocities"`
}

type Data struct {
	ID       string             `json:"id"`
	Preset   string             `json:"preset"`
	Timestep float64            `json:"timestep"`
	Steps    int                `json:"steps"`
	Frames   []FrameData        `json:"frames"`
	Metrics  map[string]float64 `json:"metrics"`
}

func newData(meta *storage.RunMetadata, frames []sim.Frame) Data {
	d := Data{
		ID:       meta.ID,
		Preset:   meta.Preset,
		Timestep: meta.Model.Timestep,
		Steps:    meta.Steps,
		Frames:   make([]FrameData, len(frames)),
		Metrics:  meta.Metrics,
	}
	for i, f := range frames {
		d.Frames[i] = FrameData{
			Step:       f.Step,
			Time:       f.Time,
			Positions:  storage.TensorRows(f.State.Pos),
			Velocities: storage.TensorRows(f.State.Vel),
		}
	}
	return d
}

// JSON writes a run as an indented JSON document.
func JSON(w io.Writer, meta *storage.RunMetadata, frames []sim.Frame) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newData(meta, frames))
}

func JSONFile(path string, meta *storage.RunMetadata, frames []sim.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return JSON(f, meta, frames)
}
