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
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/tensor"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	metricsFile  = "metrics.csv"
)

var frameHeader = []string{"step", "time", "particle", "x", "y", "z", "vx", "vy", "vz"}

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
	ID             string             `json:"id"`
	Preset         string             `json:"preset"`
	Timestamp      time.Time          `json:"timestamp"`
	Model          config.ModelConfig `json:"model"`
	Checkpoint     string             `json:"checkpoint,omitempty"`
	Particles      int                `json:"particles"`
	ObstaclePoints int                `json:"obstacle_points"`
	Steps          int                `json:"steps"`
	Metrics        map[string]float64 `json:"metrics"`
}

// Save writes a run under a new ID and returns it. meta.ID, Timestamp,
// Steps and Metrics are filled in from the result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	meta.Timestamp = time.Now()
	meta.Steps = result.StepsTaken
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, framesFile), result.Frames); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, metricsFile), result.History); err != nil {
		return "", err
	}
	return meta.ID, nil
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

func writeCSV(path string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeFrames(path string, frames []sim.Frame) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write(frameHeader); err != nil {
			return err
		}
		for _, f := range frames {
			step, t := strconv.Itoa(f.Step), formatFloat(f.Time)
			for i := 0; i < f.State.NumParticles(); i++ {
				p, v := f.State.Pos.Row(i), f.State.Vel.Row(i)
				row := []string{step, t, strconv.Itoa(i),
					formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2]),
					formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2])}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeHistory(path string, history map[string][]float64) error {
	names := make([]string, 0, len(history))
	steps := 0
	for name, values := range history {
		names = append(names, name)
		steps = max(steps, len(values))
	}
	sort.Strings(names)

	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write(append([]string{"step"}, names...)); err != nil {
			return err
		}
		for i := 0; i < steps; i++ {
			row := []string{strconv.Itoa(i + 1)}
			for _, name := range names {
				cell := ""
				if i < len(history[name]) {
					cell = formatFloat(history[name][i])
				}
				row = append(row, cell)
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns the stored runs, newest first. Directories without
// readable metadata are skipped.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
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

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LoadFrames rebuilds the recorded frames of a run. Only positions and
// velocities are stored.
func (s *Store) LoadFrames(runID string) ([]sim.Frame, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}

	var frames []sim.Frame
	var rows [][]float64
	flush := func() {
		if len(frames) > 0 {
			frames[len(frames)-1].State = stateFromRows(rows)
		}
		rows = rows[:0]
	}

	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) != len(frameHeader) {
			return nil, fmt.Errorf("%s line %d: %d fields, want %d", framesFile, i+1, len(rec), len(frameHeader))
		}
		vals := make([]float64, len(rec))
		for j, field := range rec {
			if vals[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", framesFile, i+1, err)
			}
		}
		step := int(vals[0])
		if len(frames) == 0 || frames[len(frames)-1].Step != step {
			flush()
			frames = append(frames, sim.Frame{Step: step, Time: vals[1]})
		}
		rows = append(rows, vals[3:])
	}
	flush()
	return frames, nil
}

func stateFromRows(rows [][]float64) physics.State {
	st := physics.NewState(len(rows), 0)
	for i, r := range rows {
		copy(st.Pos.Row(i), r[:3])
		copy(st.Vel.Row(i), r[3:6])
	}
	return st
}

// LoadMetricHistory returns the per-step value of every metric of a run.
func (s *Store) LoadMetricHistory(runID string) (map[string][]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, metricsFile))
	if err != nil {
		return nil, err
	}
	history := map[string][]float64{}
	if len(records) == 0 {
		return history, nil
	}

	names := records[0][1:]
	for _, name := range names {
		history[name] = make([]float64, 0, len(records)-1)
	}
	for _, rec := range records[1:] {
		for j, name := range names {
			if j+1 >= len(rec) || rec[j+1] == "" {
				continue
			}
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", metricsFile, err)
			}
			history[name] = append(history[name], v)
		}
	}
	return history, nil
}

// TensorRows copies t into plain rows, the shape JSON encoders expect.
func TensorRows(t *tensor.Tensor) [][]float64 {
	out := make([][]float64, t.Rows)
	for i := range out {
		out[i] = append([]float64(nil), t.Row(i)...)
	}
	return out
}
