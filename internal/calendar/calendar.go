// Package calendar models the weekly schedule shown on the worker detail
// screen: an ISO week (Monday through Sunday) with the jobs that start on
// each day.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/fieldops/internal/domain"
)

const (
	// Title heads the rendered grid.
	Title = "Weekly Schedule"
	// EmptyDay is shown for days without jobs.
	EmptyDay = "No jobs"
	// MissingTime stands in for an absent end time.
	MissingTime = "--:--"
)

// Entry is one job placed on a day.
type Entry struct {
	Job   domain.Job
	Start time.Time
	// Label is "HH:mm - HH:mm".
	Label string
}

// Name returns the job name or "Unnamed Job".
func (e Entry) Name() string {
	return e.Job.DisplayName()
}

// Option configures a Model.
type Option func(*Model)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// Model holds the visible week and the jobs to place on it.
type Model struct {
	now   func() time.Time
	start time.Time
	jobs  []domain.Job
}

// New returns a model showing the current week.
func New(opts ...Option) *Model {
	m := &Model{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.start = WeekOf(m.now())
	return m
}

// WeekOf returns midnight on the Monday of t's ISO week, in t's location.
func WeekOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Start is the Monday of the visible week.
func (m *Model) Start() time.Time { return m.start }

// End is the Sunday of the visible week.
func (m *Model) End() time.Time { return m.start.AddDate(0, 0, 6) }

// Days lists the seven visible days, Monday first.
func (m *Model) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = m.start.AddDate(0, 0, i)
	}
	return days
}

// Prev moves one week back.
func (m *Model) Prev() { m.start = m.start.AddDate(0, 0, -7) }

// Next moves one week forward.
func (m *Model) Next() { m.start = m.start.AddDate(0, 0, 7) }

// Today jumps back to the current week.
func (m *Model) Today() { m.start = WeekOf(m.now()) }

// SetJobs replaces the jobs placed on the grid.
func (m *Model) SetJobs(jobs []domain.Job) {
	m.jobs = append([]domain.Job(nil), jobs...)
}

// IsToday reports whether day is the current calendar day.
func (m *Model) IsToday(day time.Time) bool {
	return sameDay(day, m.now())
}

// JobsOn returns the jobs starting on day's calendar date, earliest first.
// Jobs without a start are never placed.
func (m *Model) JobsOn(day time.Time) []Entry {
	var entries []Entry
	for _, job := range m.jobs {
		start, ok := job.Start()
		if !ok {
			continue
		}
		local := start.In(day.Location())
		if !sameDay(local, day) {
			continue
		}
		entries = append(entries, Entry{Job: job, Start: local, Label: label(job, day.Location())})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Start.Before(entries[j].Start)
	})
	return entries
}

// RangeLabel formats the visible week as "Mar 10 - Mar 16, 2025".
func (m *Model) RangeLabel() string {
	return fmt.Sprintf("%s - %s", m.start.Format("Jan 2"), m.End().Format("Jan 2, 2006"))
}

func label(job domain.Job, loc *time.Location) string {
	start, _ := job.Start()
	from := start.In(loc).Format("15:04")
	to := MissingTime
	if end, ok := job.End(); ok {
		to = end.In(loc).Format("15:04")
	}
	return from + " - " + to
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	rangeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	dayStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	todayStyle = dayStyle.BorderForeground(lipgloss.Color("#FF6B6B"))
	headStyle  = lipgloss.NewStyle().Bold(true)
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
)

// View renders the week as seven bordered columns. Narrow terminals get one
// row per day instead.
func (m *Model) View(width int) string {
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render(Title),
		"  ",
		rangeStyle.Render(m.RangeLabel()),
	)
	colWidth := (width - 7*4) / 7
	stacked := colWidth < 16
	if stacked {
		colWidth = max(20, width-4)
	}
	var cols []string
	for _, day := range m.Days() {
		cols = append(cols, m.renderDay(day, colWidth))
	}
	var grid string
	if stacked {
		grid = lipgloss.JoinVertical(lipgloss.Left, cols...)
	} else {
		grid = lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	}
	hint := rangeStyle.Render("[ prev week    ] next week    t today")
	return lipgloss.JoinVertical(lipgloss.Left, header, grid, hint)
}

func (m *Model) renderDay(day time.Time, width int) string {
	lines := []string{headStyle.Render(day.Format("Mon 2"))}
	entries := m.JobsOn(day)
	if len(entries) == 0 {
		lines = append(lines, emptyStyle.Render(EmptyDay))
	}
	for _, entry := range entries {
		lines = append(lines, timeStyle.Render(entry.Label), entry.Name())
		if city := strings.TrimSpace(entry.Job.City); city != "" {
			lines = append(lines, rangeStyle.Render(city))
		}
	}
	style := dayStyle
	if m.IsToday(day) {
		style = todayStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}
