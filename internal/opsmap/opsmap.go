// Package opsmap places jobs on a character-grid operations map centred on
// the first located job, falling back to the configured city.
package opsmap

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/fieldops/internal/config"
	"github.com/kingrea/fieldops/internal/domain"
)

const kmPerDegree = 111.32

// Pin is a located job projected onto the grid.
type Pin struct {
	Job domain.Job
	Col int
	Row int
	// Visible is false when the job falls outside the visible span.
	Visible bool
}

// Option configures a Model.
type Option func(*Model)

// WithCenter sets the fallback center.
func WithCenter(c domain.Coordinates) Option {
	return func(m *Model) { m.fallback = c }
}

// WithSpan sets the east-west distance covered by the grid.
func WithSpan(km float64) Option {
	return func(m *Model) {
		if km > 0 {
			m.spanKM = km
		}
	}
}

// FromConfig applies the map section of the project config.
func FromConfig(cfg config.MapConfig) Option {
	return func(m *Model) {
		if cfg.CenterLat != 0 || cfg.CenterLng != 0 {
			m.fallback = domain.Coordinates{Lat: cfg.CenterLat, Lng: cfg.CenterLng}
		}
		if cfg.SpanKM > 0 {
			m.spanKM = cfg.SpanKM
		}
	}
}

// Model is the map state: jobs, derived center and the selected pin.
type Model struct {
	fallback domain.Coordinates
	spanKM   float64
	jobs     []domain.Job
	located  []domain.Job
	selected int
}

// New returns an empty map centred on Berlin unless configured otherwise.
func New(opts ...Option) *Model {
	m := &Model{
		fallback: domain.Coordinates{Lat: config.DefaultMapCenterLat, Lng: config.DefaultMapCenterLng},
		spanKM:   config.DefaultMapSpanKM,
		selected: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetJobs replaces the jobs and clears the selection.
func (m *Model) SetJobs(jobs []domain.Job) {
	m.jobs = append([]domain.Job(nil), jobs...)
	m.located = m.located[:0]
	for _, job := range m.jobs {
		if job.HasLocation() {
			m.located = append(m.located, job)
		}
	}
	m.selected = -1
}

// Center is the first job with both coordinates non-zero, else the fallback.
func (m *Model) Center() domain.Coordinates {
	if len(m.located) > 0 {
		return m.located[0].Coordinates()
	}
	return m.fallback
}

// Located returns the jobs that get a pin, in input order.
func (m *Model) Located() []domain.Job {
	return append([]domain.Job(nil), m.located...)
}

// Project maps each located job onto a cols x rows grid. Terminal cells are
// roughly twice as tall as wide, so a row covers twice the distance of a
// column.
func (m *Model) Project(cols, rows int) []Pin {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	center := m.Center()
	kmPerCol := m.spanKM / float64(cols)
	kmPerRow := kmPerCol * 2
	lngScale := kmPerDegree * math.Cos(center.Lat*math.Pi/180)
	pins := make([]Pin, 0, len(m.located))
	for _, job := range m.located {
		dx := (job.Longitude - center.Lng) * lngScale
		dy := (center.Lat - job.Latitude) * kmPerDegree
		col := cols/2 + int(math.Round(dx/kmPerCol))
		row := rows/2 + int(math.Round(dy/kmPerRow))
		pins = append(pins, Pin{
			Job:     job,
			Col:     col,
			Row:     row,
			Visible: col >= 0 && col < cols && row >= 0 && row < rows,
		})
	}
	return pins
}

// SelectNext cycles the selection forward through located jobs.
func (m *Model) SelectNext() {
	if len(m.located) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.located)
}

// SelectPrev cycles the selection backward.
func (m *Model) SelectPrev() {
	if len(m.located) == 0 {
		return
	}
	if m.selected <= 0 {
		m.selected = len(m.located) - 1
		return
	}
	m.selected--
}

// ClearSelection closes the popup.
func (m *Model) ClearSelection() { m.selected = -1 }

// Selected returns the selected job, if any.
func (m *Model) Selected() (domain.Job, bool) {
	if m.selected < 0 || m.selected >= len(m.located) {
		return domain.Job{}, false
	}
	return m.located[m.selected], true
}

// Popup describes the selected job: name, address, start and assignment.
func (m *Model) Popup() string {
	job, ok := m.Selected()
	if !ok {
		return ""
	}
	lines := []string{job.DisplayName()}
	if addr := strings.TrimSpace(job.AddressLine()); addr != "," {
		lines = append(lines, addr)
	}
	if start, ok := job.Start(); ok {
		lines = append(lines, start.Local().Format("Jan 2, 15:04"))
	}
	if job.IsAssigned() {
		lines = append(lines, "Assigned")
	} else {
		lines = append(lines, "Pending")
	}
	return strings.Join(lines, "\n")
}

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
	pinStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	popupStyle    = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
)

// View renders the grid with a center marker, one glyph per pin and the
// popup for the selected job.
func (m *Model) View(cols, rows int) string {
	cols = max(10, cols)
	rows = max(5, rows)
	grid := make([][]string, rows)
	for r := range grid {
		grid[r] = make([]string, cols)
		for c := range grid[r] {
			grid[r][c] = dimStyle.Render("·")
		}
	}
	grid[rows/2][cols/2] = dimStyle.Render("+")

	selected, hasSelection := m.Selected()
	for _, pin := range m.Project(cols, rows) {
		if !pin.Visible {
			continue
		}
		glyph := pinStyle.Render("●")
		if !pin.Job.IsAssigned() {
			glyph = pendingStyle.Render("●")
		}
		if hasSelection && pin.Job.JobID == selected.JobID {
			glyph = selectedStyle.Render("◆")
		}
		grid[pin.Row][pin.Col] = glyph
	}
	lines := make([]string, rows)
	for r := range grid {
		lines[r] = strings.Join(grid[r], "")
	}
	center := m.Center()
	caption := dimStyle.Render(fmt.Sprintf("center %s · %d pin(s) · %.0f km", center, len(m.located), m.spanKM))
	out := lipgloss.JoinVertical(lipgloss.Left, frameStyle.Render(strings.Join(lines, "\n")), caption)
	if popup := m.Popup(); popup != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, popupStyle.Render(popup))
	}
	return out
}
