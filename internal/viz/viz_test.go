package viz

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driftStepper moves every particle by dx along x.
type driftStepper struct {
	dx  float64
	err error
	nan bool
}

func (d driftStepper) Timestep() float64 { return 0.02 }

func (d driftStepper) Step(s physics.State, _ physics.Obstacle) (*physics.StepResult, error) {
	if d.err != nil {
		return nil, d.err
	}
	next := s.Clone()
	for i := 0; i < next.Pos.Rows; i++ {
		next.Pos.Row(i)[0] += d.dx
	}
	if d.nan {
		next.Pos.Data[0] = math.NaN()
	}
	n := s.NumParticles()
	return &physics.StepResult{State: next, Correction: tensor.New(n, 3), NeighborCounts: make([]float64, n)}, nil
}

func testModel(t *testing.T, stepper driftStepper) Model {
	t.Helper()
	init := physics.NewState(3, 0)
	for i := 0; i < 3; i++ {
		copy(init.Pos.Row(i), []float64{0.1 * float64(i+1), 0.2, 0.1})
		copy(init.Vel.Row(i), []float64{0.5, 0, 0})
	}
	return NewModel("dam break", stepper, init, physics.Box([]float64{1, 1, 1}, 0.5), [3]float64{1, 1, 1})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(1, 3)
	c.Set(-1, 0)
	c.Set(8, 0)
	c.Set(0, 8)

	if got, want := c.Grid[0][0], rune(brailleBlank|0x1|0x80); got != want {
		t.Errorf("cell = %U, want %U", got, want)
	}
	if c.Count() != 2 {
		t.Errorf("Count() = %d, want 2", c.Count())
	}
	if !c.IsSet(1, 3) || c.IsSet(1, 2) {
		t.Error("IsSet does not match the lit dots")
	}
	if lines := strings.Count(c.String(), "\n"); lines != 2 {
		t.Errorf("String() has %d lines, want 2", lines)
	}

	c.Clear()
	if c.Count() != 0 {
		t.Error("Clear left dots lit")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
		want           int
	}{
		{"horizontal", 0, 0, 9, 0, 10},
		{"vertical", 3, 0, 3, 7, 8},
		{"diagonal", 0, 0, 7, 7, 8},
		{"point", 2, 2, 2, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(10, 4)
			c.DrawLine(tt.x0, tt.y0, tt.x1, tt.y1)
			if c.Count() != tt.want {
				t.Errorf("Count() = %d, want %d", c.Count(), tt.want)
			}
		})
	}
}

func TestViewportDot(t *testing.T) {
	c := NewCanvas(10, 5)
	vp := Viewport{MaxX: 1, MaxY: 1}

	x, y := vp.Dot(c, 0, 0)
	assert.Equal(t, [2]int{0, 19}, [2]int{x, y})
	x, y = vp.Dot(c, 1, 1)
	assert.Equal(t, [2]int{19, 0}, [2]int{x, y})
	x, y = vp.Dot(c, 0.5, 0.5)
	assert.Equal(t, [2]int{9, 9}, [2]int{x, y})
}

func TestCameraProjectsTargetToCentre(t *testing.T) {
	c := NewCanvas(20, 10)
	cam := NewCamera([3]float64{0.6, 0.6, 0.3})

	x, y, _, ok := cam.Project(cam.Target, c)
	require.True(t, ok)
	assert.Equal(t, c.DotsWide()/2, x)
	assert.Equal(t, c.DotsHigh()/2, y)

	behind := cam.Target.Add(Vec3{Z: 2 * cam.Distance})
	cam.Yaw, cam.Pitch = 0, 0
	_, _, _, ok = cam.Project(behind, c)
	assert.False(t, ok)
}

func TestRenderBox(t *testing.T) {
	w := BoxWireframe([3]float64{1, 2, 3})
	require.Len(t, w.Edges, 12)
	for _, e := range w.Edges {
		d := e.End.Sub(e.Start)
		axes := 0
		for _, v := range []float64{d.X, d.Y, d.Z} {
			if v != 0 {
				axes++
			}
		}
		assert.Equal(t, 1, axes, "edge %v is not axis aligned", e)
	}

	c := NewCanvas(30, 15)
	Render3D(c, w, NewCamera([3]float64{1, 2, 3}))
	assert.Positive(t, c.Count())
}

func TestModelStep(t *testing.T) {
	m := testModel(t, driftStepper{dx: 0.01})
	m = update(t, m, m.stepCmd()())

	f := m.Frame()
	assert.Equal(t, 1, f.Step)
	assert.InDelta(t, 0.02, f.Time, 1e-12)
	assert.InDelta(t, 0.11, f.State.Pos.At(0, 0), 1e-12)
	require.Len(t, m.energy, 1)
	assert.InDelta(t, 0.125, m.energy[0], 1e-12)
	assert.NoError(t, m.Err())
}

func TestModelResetDropsInFlightStep(t *testing.T) {
	m := testModel(t, driftStepper{dx: 0.01})
	m = update(t, m, m.stepCmd()())
	stale := m.stepCmd()

	m = update(t, m, runes("r"))
	assert.Equal(t, 0, m.Frame().Step)
	assert.Empty(t, m.energy)

	m = update(t, m, stale())
	assert.Equal(t, 0, m.Frame().Step)
	assert.InDelta(t, 0.1, m.Frame().State.Pos.At(0, 0), 1e-12)
}

func TestModelStopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		stepper driftStepper
		want    error
	}{
		{"step error", driftStepper{err: boom}, boom},
		{"non-finite state", driftStepper{nan: true}, dynamo.ErrNumericInstability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testModel(t, tt.stepper)
			m = update(t, m, m.stepCmd()())

			var simErr *dynamo.SimulationError
			require.ErrorAs(t, m.Err(), &simErr)
			assert.Equal(t, 1, simErr.Step)
			assert.ErrorIs(t, m.Err(), tt.want)
			assert.False(t, m.Running())
			assert.Contains(t, m.View(), "STOPPED")
		})
	}
}

func TestModelKeys(t *testing.T) {
	m := testModel(t, driftStepper{dx: 0.01})
	require.True(t, m.Running())

	m = update(t, m, runes(" "))
	assert.False(t, m.Running())

	next, cmd := m.Update(runes("n"))
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.True(t, m.pending)
	m = update(t, m, cmd())
	assert.Equal(t, 1, m.Frame().Step)

	m = update(t, m, runes("v"))
	assert.True(t, m.perspective)
	m = update(t, m, runes("t"))
	assert.Equal(t, Themes[1].Name, m.theme.Name)

	yaw := m.camera.Yaw
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.InDelta(t, yaw+0.1, m.camera.Yaw, 1e-12)

	_, cmd = m.Update(runes("q"))
	require.NotNil(t, cmd)
	_, quit := cmd().(tea.QuitMsg)
	assert.True(t, quit)
}

func TestModelView(t *testing.T) {
	m := testModel(t, driftStepper{dx: 0.01})
	for i := 0; i < 3; i++ {
		m = update(t, m, m.stepCmd()())
	}
	view := m.View()
	for _, want := range []string{"DAM BREAK", "RUNNING", "particles", "kinetic_energy", "front"} {
		assert.Contains(t, view, want)
	}
	assert.Positive(t, m.canvas.Count())
}

func TestPicker(t *testing.T) {
	p := NewPicker("presets", []string{"coarse", "default", "radial"}, map[string]string{"coarse": "small"})
	assert.Contains(t, p.View(), "small")

	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "default", next.(Picker).Selected())
	require.NotNil(t, cmd)

	next, _ = p.Update(tea.KeyMsg{Type: tea.KeyUp})
	next, _ = next.Update(runes("q"))
	assert.Empty(t, next.(Picker).Selected())
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, strings.Repeat("─", 5), Sparkline(nil, 5))
	out := Sparkline([]float64{0, 1, 2, 3}, 4)
	assert.Contains(t, out, "▁")
	assert.Contains(t, out, "█")
}

func TestThemes(t *testing.T) {
	assert.Equal(t, "retro", GetTheme("retro").Name)
	assert.Equal(t, Themes[0], GetTheme("nope"))
	assert.Equal(t, Themes[0].Name, nextTheme(Themes[len(Themes)-1].Name).Name)
	assert.Len(t, ThemeNames(), len(Themes))
}
