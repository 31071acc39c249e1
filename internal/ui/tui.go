package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/placesearch/internal/output"
)

const (
	colorAccent = "154"
	colorDim    = "245"
)

// stopTimeout bounds how long Stop waits for the program to exit.
const stopTimeout = 2 * time.Second

// TUIRenderer draws a spinner and progress bar with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *buildModel
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
func NewTUIRenderer(cfg Config) *TUIRenderer {
	noColor := cfg.NoColor || output.DetectNoColor()
	return &TUIRenderer{
		cfg:   cfg,
		model: newBuildModel(noColor),
		done:  make(chan struct{}),
	}
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}
	r.program = tea.NewProgram(r.model,
		tea.WithOutput(r.cfg.Output),
		tea.WithContext(ctx),
		tea.WithInput(nil))

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.send(progressMsg(event))
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p == nil {
		return nil
	}

	p.Quit()
	select {
	case <-r.done:
	case <-time.After(stopTimeout):
	}
	return nil
}

type progressMsg ProgressEvent
type completeMsg CompletionStats

// buildModel is the bubbletea model for an index build.
type buildModel struct {
	event    ProgressEvent
	stats    *CompletionStats
	spinner  spinner.Model
	bar      progress.Model
	accent   lipgloss.Style
	dim      lipgloss.Style
	started  time.Time
	quitting bool
}

func newBuildModel(noColor bool) *buildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	barOpts := []progress.Option{progress.WithWidth(40), progress.WithoutPercentage()}
	m := &buildModel{
		accent:  lipgloss.NewStyle(),
		dim:     lipgloss.NewStyle(),
		started: time.Now(),
	}
	if noColor {
		barOpts = append(barOpts, progress.WithSolidFill(""), progress.WithFillCharacters('#', '-'))
	} else {
		barOpts = append(barOpts, progress.WithSolidFill(colorAccent))
		s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent))
		m.accent = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
		m.dim = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim))
	}
	m.spinner = s
	m.bar = progress.New(barOpts...)
	return m
}

// Init implements tea.Model.
func (m *buildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(20, min(60, msg.Width-30))
	case progressMsg:
		m.event = ProgressEvent(msg)
	case completeMsg:
		stats := CompletionStats(msg)
		m.stats = &stats
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *buildModel) View() string {
	if m.stats != nil {
		line := fmt.Sprintf("%s Indexed %d of %d places in %s",
			m.accent.Render("✓"), m.stats.Indexed, m.stats.Total,
			m.stats.Duration.Round(100*time.Millisecond))
		if n := m.stats.Skipped(); n > 0 {
			line += m.dim.Render(fmt.Sprintf(" (%d skipped)", n))
		}
		return line + "\n"
	}
	if m.quitting {
		return "Cancelled.\n"
	}

	var sb strings.Builder
	sb.WriteString(m.spinner.View())
	sb.WriteByte(' ')
	sb.WriteString(m.accent.Render(m.event.Stage.String()))
	if m.event.Total > 0 {
		ratio := float64(m.event.Current) / float64(m.event.Total)
		fmt.Fprintf(&sb, " %s %d/%d", m.bar.ViewAs(min(ratio, 1)), m.event.Current, m.event.Total)
	}
	if m.event.Message != "" {
		sb.WriteString(m.dim.Render("  " + m.event.Message))
	}
	sb.WriteByte('\n')
	return sb.String()
}
