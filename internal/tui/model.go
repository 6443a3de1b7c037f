// Package tui is an interactive terminal front end for a Geocoder.
package tui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/beetlebugorg/shapefile/pkg/geocode"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// GeocoderPort is the subset of the geocoder the TUI drives.
type GeocoderPort interface {
	GeocodeTopN(address string, n int) []geocode.GeocodeResult
	ReverseGeocode(p geom.Point, maxDistance float64) geocode.GeocodeResult
}

// Model is the Bubble Tea model.
type Model struct {
	geo         GeocoderPort
	input       textinput.Model
	viewport    viewport.Model
	results     []geocode.GeocodeResult
	summary     string
	status      string
	cursor      int
	ready       bool
	topN        int
	maxDistance float64
}

// New creates a model. summary is shown under the title.
func New(geo GeocoderPort, summary string, topN int, maxDistance float64) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Address or place, or x,y to reverse geocode"
	ti.Focus()
	ti.CharLimit = 0
	if topN <= 0 {
		topN = 10
	}
	return Model{
		geo:         geo,
		input:       ti,
		viewport:    viewport.New(0, 0),
		summary:     summary,
		status:      "Loaded. Type a query and press Enter.",
		topN:        topN,
		maxDistance: maxDistance,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		// title, summary, status and one spacer
		reserved := 4 + qh
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.run(q)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run executes q, as a reverse lookup when it is a coordinate pair.
func (m *Model) run(q string) {
	m.cursor = 0
	if p, ok := ParseCoordinate(q); ok {
		m.results = nil
		if r := m.geo.ReverseGeocode(p, m.maxDistance); r.Found() {
			m.results = []geocode.GeocodeResult{r}
		}
		m.status = fmt.Sprintf("Reverse %v: %d result(s)", p, len(m.results))
		return
	}
	m.results = m.geo.GeocodeTopN(q, m.topN)
	m.status = fmt.Sprintf("%d result(s) for %q", len(m.results), q)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Shapefile Geocoder")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results."
	}
	r := m.results[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "Result %d/%d  ", m.cursor+1, len(m.results))
	b.WriteString(confidenceStyle(r.Confidence).Render(fmt.Sprintf("confidence=%.3f", r.Confidence)))
	b.WriteString("\n\n")
	b.WriteString(placeStyle.Render(r.PlaceName))
	fmt.Fprintf(&b, "\n%-12s %.6f, %.6f", "coordinate", r.Coordinate.X, r.Coordinate.Y)
	fmt.Fprintf(&b, "\n%-12s %s", "match", r.MatchType)
	fmt.Fprintf(&b, "\n%-12s %d", "record", r.RecordIndex)
	if s := r.Address.String(); s != "" {
		fmt.Fprintf(&b, "\n%-12s %s", "address", s)
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	placeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	coordinateRe   = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*[,\s]\s*(-?\d+(?:\.\d+)?)\s*$`)
)

func confidenceStyle(c float64) lipgloss.Style {
	color := "9"
	switch {
	case c > 0.9:
		color = "10"
	case c >= 0.6:
		color = "11"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// ParseCoordinate recognizes "x,y" or "x y".
func ParseCoordinate(s string) (geom.Point, bool) {
	m := coordinateRe.FindStringSubmatch(s)
	if m == nil {
		return geom.Point{}, false
	}
	x, err1 := strconv.ParseFloat(m[1], 64)
	y, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return geom.Point{}, false
	}
	return geom.Point{X: x, Y: y}, true
}
