package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/go-drift/listkit/cmd/listkit/internal/scenario"
	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/reuse"
)

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui <scenario.yaml>",
		Short: "Browse a scenario in the terminal",
		Long: `Browse a scenario in the terminal.

Keys:
  ↑/↓, k/j     scroll one line
  pgup/pgdown  scroll one page
  n            apply the next snapshot of the scenario
  r            reload
  q            quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			// The terminal belongs to the program; engine logs are dropped.
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			m, err := newTUIModel(cmd.Context(), sc, logger)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

var (
	itemStyle   = lipgloss.NewStyle()
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	footerStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// tuiModel renders the headless surface's displayed slots as terminal
// lines. One terminal row is one line of the measurer's font.
type tuiModel struct {
	ctx       context.Context
	s         *session
	snapshots []collection.Snapshot
	current   int
	last      reuse.Outcome
	rows      int
	cols      int
}

func newTUIModel(ctx context.Context, sc *scenario.Scenario, logger *slog.Logger) (*tuiModel, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(sc, logger)
	if err != nil {
		return nil, err
	}
	lineHeight := s.measurer.LineHeight()
	charWidth := s.measurer.Measure("m", sc.Viewport.Size()).Width
	m := &tuiModel{
		ctx:       ctx,
		s:         s,
		snapshots: sc.Snapshots(),
		rows:      int(math.Ceil(sc.Viewport.Height / lineHeight)),
		cols:      int(sc.Viewport.Width / charWidth),
	}
	m.last, _ = s.container.Update(ctx, m.snapshots[0])
	s.container.Tick()
	return m, nil
}

// Init implements tea.Model.
func (m *tuiModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	line := m.s.measurer.LineHeight()
	switch key.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		m.s.surface.ScrollBy(-line)
	case "down", "j":
		m.s.surface.ScrollBy(line)
	case "pgup":
		m.s.surface.ScrollBy(-float64(m.rows) * line)
	case "pgdown", " ":
		m.s.surface.ScrollBy(float64(m.rows) * line)
	case "n":
		m.current = (m.current + 1) % len(m.snapshots)
		m.last, _ = m.s.container.Update(m.ctx, m.snapshots[m.current])
		m.s.container.Tick()
	case "r":
		m.s.container.Reload()
	}
	return m, nil
}

// View implements tea.Model.
func (m *tuiModel) View() string {
	return frameStyle.Render(strings.Join(m.lines(), "\n")) + "\n" + statusStyle.Render(m.status())
}

func (m *tuiModel) lines() []string {
	grid := make([]string, m.rows)
	line := m.s.measurer.LineHeight()
	offset := m.s.surface.ContentOffset().Y
	width := m.s.scenario.Viewport.Width

	for _, target := range m.s.surface.Displayed() {
		frame, ok := m.s.container.Frame(target)
		if !ok {
			continue
		}
		style := itemStyle
		switch target.Kind {
		case reuse.KindHeader:
			style = headerStyle
		case reuse.KindFooter:
			style = footerStyle
		}
		top := int(math.Floor((frame.Top - offset) / line))
		for i, text := range m.s.measurer.Lines(m.s.text(target), width) {
			row := top + i
			if row < 0 || row >= m.rows || grid[row] != "" {
				continue
			}
			grid[row] = style.Render(text)
		}
	}
	for i, row := range grid {
		grid[i] = lipgloss.NewStyle().Width(m.cols).Render(row)
	}
	return grid
}

func (m *tuiModel) status() string {
	live, pending, free := m.s.coordinator.Counts()
	return fmt.Sprintf("snapshot %d/%d  %s  offset %g  cells %d/%d/%d  (↑↓ scroll · n next · r reload · q quit)",
		m.current+1, len(m.snapshots), m.last.Kind, m.s.surface.ContentOffset().Y, live, pending, free)
}
