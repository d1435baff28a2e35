package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flowcanvas/flowcanvas/pkg/canvas"
	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// Viewer geometry. Screen coordinates are terminal cells; the anchor is
// where scenario steps are centered.
const (
	viewAnchorX = 40
	viewAnchorY = 12

	// redrawInterval paces frame refreshes while a scenario plays.
	redrawInterval = 200 * time.Millisecond

	panStep    = 4.0
	zoomInStep = 1.2
)

// viewDefaultTransform maps typical world coordinates (hundreds of units)
// onto a terminal-sized grid.
var viewDefaultTransform = canvas.Transform{X: 6, Y: 4, Scale: 0.1}

// Viewer styles
var (
	viewNodeStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	viewDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	viewCurrentStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	viewVisitedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	viewStatusStyle  = lipgloss.NewStyle().Foreground(colorGray)
)

// redrawMsg paces the render loop.
type redrawMsg struct{}

// =============================================================================
// canvasModel - Interactive Diagram Viewer
// =============================================================================

// canvasModel is the bubbletea model wrapping a canvas session. All reads go
// through Session.Frame so the viewer shows exactly what any other host
// would render.
type canvasModel struct {
	sess *canvas.Session

	width  int
	height int

	searching bool
	searchBuf string

	search    string
	moduleIdx int
	modules   []string
	showEdges bool

	scenarioIdx int
	scenarios   []string
}

// newCanvasModel creates a viewer over an already-loaded session.
func newCanvasModel(sess *canvas.Session) canvasModel {
	snap := sess.Snapshot()

	moduleSet := map[string]bool{}
	for _, n := range snap.Nodes {
		if n.Module != "" {
			moduleSet[n.Module] = true
		}
	}
	modules := []string{model.ModuleAll}
	for m := range moduleSet {
		modules = append(modules, m)
	}
	sort.Strings(modules[1:])

	scenarios := make([]string, 0, len(snap.Scenarios))
	for id := range snap.Scenarios {
		scenarios = append(scenarios, id)
	}
	sort.Strings(scenarios)

	return canvasModel{
		sess:        sess,
		width:       80,
		height:      24,
		modules:     modules,
		showEdges:   true,
		scenarioIdx: -1,
		scenarios:   scenarios,
	}
}

func (m canvasModel) Init() tea.Cmd {
	return redrawTick()
}

func redrawTick() tea.Cmd {
	return tea.Tick(redrawInterval, func(time.Time) tea.Msg { return redrawMsg{} })
}

func (m canvasModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case redrawMsg:
		return m, redrawTick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

// updateSearch handles key input while the search prompt is open.
func (m canvasModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchBuf = ""
	case "enter":
		m.searching = false
		m.search = m.searchBuf
		m.applyFilter()
	case "backspace":
		if len(m.searchBuf) > 0 {
			m.searchBuf = m.searchBuf[:len(m.searchBuf)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.searchBuf += string(msg.Runes)
		}
	}
	return m, nil
}

func (m canvasModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	center := canvas.Point{X: float64(m.width) / 2, Y: float64(m.height) / 2}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.sess.Pan(panStep, 0)
	case "right", "l":
		m.sess.Pan(-panStep, 0)
	case "up", "k":
		m.sess.Pan(0, panStep/2)
	case "down", "j":
		m.sess.Pan(0, -panStep/2)
	case "+", "=":
		m.sess.ZoomAt(center, zoomInStep)
	case "-":
		m.sess.ZoomAt(center, 1/zoomInStep)
	case "0":
		m.sess.ResetView()
	case "/":
		m.searching = true
		m.searchBuf = m.search
	case "m":
		m.moduleIdx = (m.moduleIdx + 1) % len(m.modules)
		m.applyFilter()
	case "r":
		m.showEdges = !m.showEdges
		m.applyFilter()
	case "s":
		if len(m.scenarios) > 0 {
			m.scenarioIdx = (m.scenarioIdx + 1) % len(m.scenarios)
			_ = m.sess.SelectScenario(m.scenarios[m.scenarioIdx])
		}
	case "esc":
		m.scenarioIdx = -1
		m.sess.ExitScenario()
	case " ":
		switch m.sess.Player().State() {
		case canvas.StatePlaying:
			m.sess.Pause()
		case canvas.StateLoaded, canvas.StatePaused:
			m.sess.Play()
		}
	case "n":
		m.sess.AdvanceScenario()
	case "b":
		m.sess.ResetStep()
	}
	return m, nil
}

func (m *canvasModel) applyFilter() {
	m.sess.SetFilter(m.modules[m.moduleIdx], m.search, m.showEdges)
}

// =============================================================================
// Rendering
// =============================================================================

func (m canvasModel) View() string {
	f := m.sess.Frame()

	gridHeight := m.height - 4
	if gridHeight < 5 {
		gridHeight = 5
	}

	grid := make([][]string, gridHeight)
	for y := range grid {
		grid[y] = make([]string, m.width)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	for _, n := range f.Nodes {
		screen := f.Transform.WorldToScreen(canvas.Point{X: n.Pos.X, Y: n.Pos.Y})
		// Terminal cells are roughly twice as tall as wide.
		col := int(screen.X)
		row := int(screen.Y / 2)
		if row < 0 || row >= gridHeight || col < 0 || col >= m.width {
			continue
		}

		style := viewNodeStyle
		switch {
		case n.Current || n.Selected:
			style = viewCurrentStyle
		case n.Visited:
			style = viewVisitedStyle
		case n.Opacity < 1:
			style = viewDimStyle
		}

		grid[row][col] = style.Render(glyphFor(n.Shape))
		placeLabel(grid[row], col+2, n.Node.ID, style, m.width)
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine(f))
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

// placeLabel writes a node label into the row, truncated at the grid edge.
// The label occupies one cell; the cells it covers are blanked so the row
// keeps its width when joined.
func placeLabel(row []string, col int, label string, style lipgloss.Style, width int) {
	if col >= width {
		return
	}
	if max := width - col; len(label) > max {
		label = label[:max]
	}
	row[col] = style.Render(label)
	for i := 1; i < len(label) && col+i < width; i++ {
		row[col+i] = ""
	}
}

func glyphFor(shape canvas.Shape) string {
	switch shape {
	case canvas.ShapeSquare:
		return "■"
	case canvas.ShapeDiamond:
		return "◆"
	default:
		return "●"
	}
}

func (m canvasModel) statusLine(f canvas.Frame) string {
	if m.searching {
		return StyleHighlight.Render("search: ") + m.searchBuf + StyleDim.Render("▏")
	}

	parts := []string{fmt.Sprintf("module %s", m.modules[m.moduleIdx])}
	if m.search != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.search))
	}
	if !m.showEdges {
		parts = append(parts, "edges hidden")
	}

	if f.Scenario != nil {
		status := fmt.Sprintf("journey %s [%s]", f.Scenario.Name, f.State)
		if f.Annotation != nil {
			status += " " + StyleHighlight.Render(f.Annotation.Action)
		}
		parts = append(parts, status)
	}

	return viewStatusStyle.Render(strings.Join(parts, "  ·  "))
}

func (m canvasModel) helpLine() string {
	return StyleDim.Render("←↑↓→ pan  +/- zoom  0 reset  / search  m module  r edges  s journey  space play  n step  esc exit  q quit")
}
