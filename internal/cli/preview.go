package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/motion"
	"github.com/factorial/trendline/pkg/pipeline"
	"github.com/factorial/trendline/pkg/render/sink"
)

const (
	previewFPS       = 30
	previewMinWidth  = 20
	previewMinHeight = 5
	previewDot       = "•"
	previewStem      = "│"
)

// previewCommand creates the preview command, which replays the chart's
// reveal animation in the terminal.
func (c *CLI) previewCommand() *cobra.Command {
	var flags chartFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Replay the chart animation in the terminal",
		Long: `Preview simulates a chart and plays its eased reveal in the terminal.

Keys: r replays, n draws new curves, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.config.PipelineOptions()
			if err := flags.apply(cmd, &opts); err != nil {
				return err
			}
			return c.runPreview(cmd.Context(), opts)
		},
	}

	flags.register(cmd)
	return cmd
}

func (c *CLI) runPreview(ctx context.Context, opts pipeline.Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	generate := func(seed uint64) ([]gbm.Series, error) {
		o := opts
		o.Seed = seed
		return runner.Generate(ctx, o)
	}
	series, err := generate(opts.Seed)
	if err != nil {
		return err
	}

	m := newPreviewModel(series, opts, generate)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// previewModel - bubbletea model
// =============================================================================

type previewTickMsg time.Time

type previewModel struct {
	series   []gbm.Series
	anim     motion.Animation
	static   bool
	colors   []lipgloss.Style
	seed     uint64
	generate func(seed uint64) ([]gbm.Series, error)

	width   int
	height  int
	start   time.Time
	elapsed time.Duration
	err     error
}

func newPreviewModel(series []gbm.Series, opts pipeline.Options, generate func(uint64) ([]gbm.Series, error)) previewModel {
	return previewModel{
		series:   series,
		anim:     opts.Animation,
		static:   opts.Static,
		colors:   curveStyles(opts),
		seed:     opts.Seed,
		generate: generate,
		width:    60,
		height:   15,
		start:    time.Now(),
	}
}

// curveStyles mirrors the SVG colour choice: an explicit stroke for every
// curve, otherwise the palette for multi-curve charts.
func curveStyles(opts pipeline.Options) []lipgloss.Style {
	colors := opts.Palette
	switch {
	case opts.Stroke != "":
		colors = []string{opts.Stroke}
	case len(colors) == 0 && opts.Curves > 1:
		colors = sink.DefaultPalette
	case len(colors) == 0:
		colors = []string{sink.DefaultStroke}
	}
	styles := make([]lipgloss.Style, len(colors))
	for i, col := range colors {
		styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(col))
	}
	return styles
}

func previewTick() tea.Cmd {
	return tea.Tick(time.Second/previewFPS, func(t time.Time) tea.Msg {
		return previewTickMsg(t)
	})
}

func (m previewModel) Init() tea.Cmd {
	return previewTick()
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.start, m.elapsed = time.Now(), 0
			return m, previewTick()
		case "n":
			if m.seed != 0 {
				m.seed++
			}
			m.series, m.err = m.generate(m.seed)
			m.start, m.elapsed = time.Now(), 0
			return m, previewTick()
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-2, previewMinWidth)
		m.height = max(msg.Height-6, previewMinHeight)
	case previewTickMsg:
		m.elapsed = time.Time(msg).Sub(m.start)
		if !m.done() {
			return m, previewTick()
		}
	}
	return m, nil
}

func (m previewModel) done() bool {
	return m.static || (m.anim.Done(m.elapsed) && m.elapsed >= m.anim.FadeDuration)
}

func (m previewModel) progress() float64 {
	if m.static {
		return 1
	}
	return m.anim.Progress(m.elapsed)
}

func (m previewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Trendline preview"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styleIconError.Render(iconError) + " " + m.err.Error() + "\n")
	} else {
		fading := !m.static && m.elapsed < m.anim.FadeDuration
		grid := plotGrid(m.series, m.progress(), m.width, m.height)
		for _, row := range grid {
			for _, cell := range row {
				switch {
				case cell.curve < 0:
					b.WriteByte(' ')
				case fading:
					b.WriteString(StyleDim.Render(cell.glyph))
				default:
					b.WriteString(m.colors[cell.curve%len(m.colors)].Render(cell.glyph))
				}
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%3.0f%%  %s  ·  r replay  n new  q quit",
		m.progress()*100, m.anim.Easing)))
	return b.String()
}

// =============================================================================
// Plotting
// =============================================================================

type plotCell struct {
	curve int // -1 for empty
	glyph string
}

// plotGrid rasterises the revealed fraction of each series onto a w×h grid.
// All series share one vertical range so relative growth stays visible.
func plotGrid(series []gbm.Series, progress float64, w, h int) [][]plotCell {
	grid := make([][]plotCell, h)
	for r := range grid {
		grid[r] = make([]plotCell, w)
		for c := range grid[r] {
			grid[r][c] = plotCell{curve: -1}
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, p := range s {
			lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
		}
	}
	if math.IsInf(lo, 0) {
		return grid
	}

	row := func(v float64) int {
		if hi == lo {
			return h / 2
		}
		return (h - 1) - int(math.Round((v-lo)/(hi-lo)*float64(h-1)))
	}
	col := func(i, n int) int {
		if n < 2 {
			return 0
		}
		return int(math.Round(float64(i) * float64(w-1) / float64(n-1)))
	}

	for ci, s := range series {
		shown := int(math.Ceil(progress * float64(len(s))))
		prevRow := -1
		for i := 0; i < shown && i < len(s); i++ {
			r, c := row(s[i].Value), col(i, len(s))
			if prevRow >= 0 {
				for rr := min(prevRow, r) + 1; rr < max(prevRow, r); rr++ {
					grid[rr][c] = plotCell{curve: ci, glyph: previewStem}
				}
			}
			grid[r][c] = plotCell{curve: ci, glyph: previewDot}
			prevRow = r
		}
	}
	return grid
}
