// Package tui shows a running simulation: progress, a projection of the
// particles and an energy trace.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/demsim/internal/experiment"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/sim"
	"github.com/san-kum/demsim/internal/viz"
)

const (
	canvasWidth  = 60
	canvasHeight = 18
	historyLen   = 200
)

// progressMsg is a copy of the scene taken on the simulation goroutine.
type progressMsg struct {
	Step      int
	Time      float64
	Kinetic   float64
	Elastic   float64
	Contacts  int
	Particles []*particle.Particle
	Faces     [][]mgl64.Vec3
}

type doneMsg struct {
	res *sim.Result
	err error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Observer forwards throttled copies of the scene to the program.
type Observer struct {
	send     func(tea.Msg)
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewObserver(send func(tea.Msg), interval time.Duration) *Observer {
	return &Observer{send: send, interval: interval}
}

func (o *Observer) OnStep(f sim.Frame) {
	o.mu.Lock()
	now := time.Now()
	if now.Sub(o.last) < o.interval {
		o.mu.Unlock()
		return
	}
	o.last = now
	o.mu.Unlock()

	o.send(snapshot(f))
}

func snapshot(f sim.Frame) progressMsg {
	msg := progressMsg{
		Step:      f.Step,
		Time:      f.Time,
		Particles: make([]*particle.Particle, len(f.Particles)),
		Faces:     viz.FacePolygons(f.Mesh),
	}
	for i, p := range f.Particles {
		msg.Kinetic += p.KineticEnergy()
		msg.Particles[i] = &particle.Particle{ID: p.ID, Radius: p.Radius, State: particle.Kinematics{Position: p.State.Position}}
	}
	if f.Report != nil {
		msg.Elastic = f.Report.ElasticEnergy
		msg.Contacts = f.Report.Contacts + f.Report.WallContacts
	}
	return msg
}

type model struct {
	title    string
	duration float64
	start    float64
	cancel   context.CancelFunc

	last    progressMsg
	kinetic []float64
	elastic []float64

	camera *viz.Camera
	fitted bool
	theme  viz.Theme
	frame  int

	done bool
	res  *sim.Result
	err  error
}

func newModel(title string, start, duration float64, cancel context.CancelFunc) model {
	return model{
		title:    title,
		start:    start,
		duration: duration,
		cancel:   cancel,
		camera:   viz.NewCamera(),
		theme:    viz.ThemeCyberpunk,
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		m.frame++
		if m.done {
			return m, nil
		}
		return m, tick()
	case progressMsg:
		m.last = msg
		m.kinetic = appendBounded(m.kinetic, msg.Kinetic)
		m.elastic = appendBounded(m.elastic, msg.Elastic)
		if !m.fitted {
			m.camera.Fit(msg.Particles, canvasWidth*2, canvasHeight*4)
			m.fitted = true
		}
		return m, nil
	case doneMsg:
		m.done = true
		m.res = msg.res
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.cancel()
		return m, tea.Quit
	case "t":
		m.theme = viz.NextTheme(m.theme)
	case "+", "=":
		m.camera.ZoomIn()
	case "-":
		m.camera.ZoomOut()
	case "left", "h":
		m.camera.RotateZ(-0.2)
	case "right", "l":
		m.camera.RotateZ(0.2)
	case "up", "k":
		m.camera.RotateX(-0.2)
	case "down", "j":
		m.camera.RotateX(0.2)
	case "f":
		m.camera.Fit(m.last.Particles, canvasWidth*2, canvasHeight*4)
	}
	return m, nil
}

func appendBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyLen {
		xs = xs[len(xs)-historyLen:]
	}
	return xs
}

func (m model) View() string {
	primary := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary)
	accent := lipgloss.NewStyle().Foreground(m.theme.Secondary)

	var b strings.Builder
	b.WriteString(primary.Render("demsim") + "  " + viz.Subtle.Render(m.title) + "\n\n")

	progress := 0.0
	if m.duration > 0 {
		progress = (m.last.Time - m.start) / m.duration
	}
	status := viz.StatusRunning.Render(viz.AnimatedSpinner(m.frame) + " running")
	switch {
	case m.done && m.err != nil:
		status = viz.StatusError.Render("stopped: " + m.err.Error())
	case m.done:
		status = viz.StatusRunning.Render("done")
	}
	fmt.Fprintf(&b, "%s %s %5.1f%%\n", status, viz.ProgressBar(progress, 30), 100*progress)
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n\n",
		viz.MetricLabel.Render("t"), viz.MetricValue.Render(fmt.Sprintf("%.5f", m.last.Time)),
		viz.MetricLabel.Render("step"), viz.MetricValue.Render(fmt.Sprintf("%d", m.last.Step)),
		viz.MetricLabel.Render("contacts"), viz.MetricValue.Render(fmt.Sprintf("%d", m.last.Contacts)))

	cv := viz.NewCanvas(canvasWidth, canvasHeight)
	viz.RenderScene(cv, m.last.Particles, m.last.Faces, m.camera)
	b.WriteString(accent.Render(cv.String()))
	b.WriteString("\n")

	if len(m.kinetic) > 1 {
		b.WriteString(asciigraph.PlotMany([][]float64{m.kinetic, m.elastic},
			asciigraph.Height(8),
			asciigraph.Width(canvasWidth),
			asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
			asciigraph.Caption("kinetic (cyan) / elastic (yellow) energy"),
		))
		b.WriteString("\n")
	}

	b.WriteString(viz.KeyHint.Render("q quit · arrows rotate · +/- zoom · f fit · t theme"))
	return b.String()
}

// Run drives exp inside the live view and returns its result once the run
// ends or the user quits. Quitting cancels the run and waits for it to stop.
func Run(ctx context.Context, exp *experiment.Experiment) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := exp.Config()
	_, start := exp.Clock()
	p := tea.NewProgram(newModel(cfg.Scene, start, cfg.Duration, cancel))
	exp.GetSimulator().AddObserver(NewObserver(p.Send, 50*time.Millisecond))

	finished := make(chan doneMsg, 1)
	go func() {
		res, err := exp.Run(ctx)
		msg := doneMsg{res: res, err: err}
		finished <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return nil, err
	}
	cancel()
	d := <-finished
	return d.res, d.err
}
