package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

const (
	canvasWidth     = 56
	canvasHeight    = 22
	historyCapacity = 300
	tickRate        = time.Second / 30
)

type TickMsg time.Time

// StepMsg carries the outcome of a step computed off the UI loop.
type StepMsg struct {
	Result  *physics.StepResult
	Err     error
	Elapsed time.Duration
	gen     int
}

// Model steps a fluid in the background and draws it as braille dots.
type Model struct {
	name     string
	stepper  sim.Stepper
	obstacle physics.Obstacle
	initial  physics.State
	frame    sim.Frame
	size     [3]float64

	canvas      *Canvas
	camera      *Camera
	walls       *Wireframe
	theme       Theme
	perspective bool

	running bool
	pending bool
	// gen drops results of steps started before the last reset.
	gen int

	energy  []float64
	metrics []sim.Metric
	elapsed time.Duration
	err     error
}

// NewModel shows init inside a box of edge lengths size.
func NewModel(name string, stepper sim.Stepper, init physics.State, obs physics.Obstacle, size [3]float64) Model {
	return Model{
		name:     name,
		stepper:  stepper,
		obstacle: obs,
		initial:  init.Clone(),
		frame:    sim.Frame{State: init.Clone()},
		size:     size,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		camera:   NewCamera(size),
		walls:    BoxWireframe(size),
		theme:    Themes[0],
		running:  true,
		energy:   make([]float64, 0, historyCapacity),
		metrics:  metrics.Default(),
	}
}

func (m Model) Frame() sim.Frame { return m.frame }
func (m Model) Running() bool    { return m.running }
func (m Model) Err() error       { return m.err }

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running && !m.pending && m.err == nil {
				m.pending = true
				return m, m.stepCmd()
			}
		case "r":
			m.reset()
		case "v":
			m.perspective = !m.perspective
		case "t":
			m.theme = nextTheme(m.theme.Name)
		case "left", "h":
			m.camera.Orbit(-0.1)
		case "right", "l":
			m.camera.Orbit(0.1)
		case "up", "k":
			m.camera.Tilt(0.1)
		case "down", "j":
			m.camera.Tilt(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running && !m.pending && m.err == nil {
			m.pending = true
			return m, tea.Batch(tick(), m.stepCmd())
		}
		return m, tick()
	case StepMsg:
		if msg.gen == m.gen {
			m.pending = false
			m.apply(msg)
		}
	}
	return m, nil
}

// stepCmd advances the current frame once. Steps take far longer than a
// tick, so at most one is in flight.
func (m Model) stepCmd() tea.Cmd {
	stepper, obs, state, gen := m.stepper, m.obstacle, m.frame.State, m.gen
	return func() tea.Msg {
		start := time.Now()
		res, err := stepper.Step(state, obs)
		return StepMsg{Result: res, Err: err, Elapsed: time.Since(start), gen: gen}
	}
}

func (m *Model) apply(msg StepMsg) {
	step := m.frame.Step + 1
	t := float64(step) * m.stepper.Timestep()
	m.elapsed = msg.Elapsed
	if msg.Err != nil {
		m.fail(&dynamo.SimulationError{Step: step, Time: m.frame.Time, Wrapped: msg.Err})
		return
	}
	m.frame = sim.Frame{
		Step:           step,
		Time:           t,
		State:          msg.Result.State,
		Correction:     msg.Result.Correction,
		NeighborCounts: msg.Result.NeighborCounts,
	}
	if !m.frame.State.IsFinite() {
		m.fail(&dynamo.SimulationError{Step: step, Time: t, Wrapped: dynamo.ErrNumericInstability})
		return
	}
	for _, mt := range m.metrics {
		mt.Observe(m.frame)
	}
	m.energy = append(m.energy, metrics.MeanKineticEnergy(m.frame))
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
}

func (m *Model) fail(err error) {
	m.err = err
	m.running = false
}

func (m *Model) reset() {
	m.gen++
	m.pending = false
	m.err = nil
	m.frame = sim.Frame{State: m.initial.Clone()}
	m.energy = m.energy[:0]
	for _, mt := range m.metrics {
		mt.Reset()
	}
}

// draw renders the walls and particles either as a front view of the x-y
// plane or through the orbit camera.
func (m *Model) draw() {
	m.canvas.Clear()
	pos := m.frame.State.Pos
	if m.perspective {
		Render3D(m.canvas, m.walls, m.camera)
		for i := 0; i < pos.Rows; i++ {
			p := pos.Row(i)
			if x, y, _, ok := m.camera.Project(Vec3{p[0], p[1], p[2]}, m.canvas); ok {
				m.canvas.Set(x, y)
			}
		}
		return
	}

	DrawFront(m.canvas, pos, m.size)
}

func (m Model) View() string {
	m.draw()
	fluid := lipgloss.NewStyle().Foreground(m.theme.Fluid)
	canvasView := canvasStyle.Render(fluid.Render(m.canvas.String()))

	var s strings.Builder
	s.WriteString(HeaderStyle.Foreground(m.theme.Accent).Render(strings.ToUpper(m.name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(ErrorStyle.Render("STOPPED") + "\n")
	case m.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n")
	}

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(Field("step", fmt.Sprintf("%d", m.frame.Step)))
	s.WriteString(Field("time", fmt.Sprintf("%.3fs", m.frame.Time)))
	s.WriteString(Field("particles", fmt.Sprintf("%d", m.frame.State.NumParticles())))
	if m.obstacle.Points != nil {
		s.WriteString(Field("wall samples", fmt.Sprintf("%d", m.obstacle.Points.Rows)))
	}
	for _, mt := range m.metrics {
		s.WriteString(Field(mt.Name(), fmt.Sprintf("%.4g", mt.Value())))
	}
	s.WriteString(Field("step cost", m.elapsed.Round(time.Millisecond).String()))
	view := "front"
	if m.perspective {
		view = "orbit"
	}
	s.WriteString(Field("view", view+" / "+m.theme.Name))
	if m.err != nil {
		s.WriteString("\n" + ErrorStyle.Render(m.err.Error()) + "\n")
	}

	help := helpStyle.Foreground(m.theme.Muted)
	s.WriteString(help.Render("SP:Pause N:Step R:Reset Q:Quit\nV:View T:Theme ←→↑↓:Orbit +/-:Zoom"))
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}
