package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/fieldops/internal/dashboard"
	"github.com/kingrea/fieldops/internal/domain"
	"github.com/kingrea/fieldops/internal/opsmap"
)

const msgDashboardLoadFailed = "Failed to load dashboard data"

type dashboardLoadedMsg struct {
	jobs    []domain.Job
	workers []domain.Worker
	err     error
}

type dashboardView struct {
	app     *App
	summary *dashboard.Summary
	opsMap  *opsmap.Model
}

func newDashboardView(app *App) *dashboardView {
	var opts []opsmap.Option
	if app.config != nil {
		opts = append(opts, opsmap.FromConfig(app.config.Project.Map))
	}
	return &dashboardView{app: app, opsMap: opsmap.New(opts...)}
}

func (v *dashboardView) Init() tea.Cmd {
	backend, ctx := v.app.backend, v.app.ctx
	return func() tea.Msg {
		var (
			jobs    []domain.Job
			workers []domain.Worker
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			jobs, err = backend.ListJobs(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			workers, err = backend.ListWorkers(gctx)
			return err
		})
		err := g.Wait()
		return dashboardLoadedMsg{jobs: jobs, workers: workers, err: err}
	}
}

func (v *dashboardView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case dashboardLoadedMsg:
		if m.err != nil {
			return v.app.loadFailed(msgDashboardLoadFailed, m.err)
		}
		summary := dashboard.Summarize(m.jobs, m.workers, v.app.now())
		v.summary = &summary
		v.opsMap.SetJobs(m.jobs)
		v.app.logInfo("Dashboard · %d job(s), fleet %s", summary.TotalJobs, summary.Fleet())
	case tea.KeyMsg:
		switch m.String() {
		case "tab", "n":
			v.opsMap.SelectNext()
		case "shift+tab", "p":
			v.opsMap.SelectPrev()
		case "enter":
			if job, ok := v.opsMap.Selected(); ok {
				return v.app.openJobDetail(job.JobID)
			}
		case "r":
			return v.Init()
		}
	}
	return nil
}

func (v *dashboardView) consumeEsc() bool {
	if _, ok := v.opsMap.Selected(); !ok {
		return false
	}
	v.opsMap.ClearSelection()
	return true
}

func (v *dashboardView) hints() []string {
	return []string{"tab next pin", "shift+tab prev pin", "enter open job", "r refresh"}
}

var (
	statStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 2).
			MarginRight(1)
	statValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
)

func stat(title, value string) string {
	return statStyle.Render(mutedStyle.Render(title) + "\n" + statValueStyle.Render(value))
}

func (v *dashboardView) View() string {
	if v.summary == nil {
		return v.app.loading("dashboard")
	}
	s := v.summary
	chip := warnStyle.Render("● " + s.StatusLabel())
	if s.AllAssigned() {
		chip = successStyle.Render("● " + s.StatusLabel())
	}
	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Active Fleet", s.Fleet()),
		stat("Pending Jobs", fmt.Sprintf("%d", s.TotalJobs)),
		stat("Unassigned", fmt.Sprintf("%d", s.Unassigned)),
	)

	upcoming := []string{panelTitleStyle.Render("Upcoming Jobs")}
	if len(s.Upcoming) == 0 {
		upcoming = append(upcoming, mutedStyle.Render("No upcoming jobs."))
	}
	for _, job := range s.Upcoming {
		start, _ := job.Start()
		line := fmt.Sprintf("%s  %s", start.Local().Format("Mon Jan 2 15:04"), job.DisplayName())
		assigned := warnStyle.Render("Unassigned")
		if job.IsAssigned() {
			assigned = mutedStyle.Render("Assigned: " + strings.Join(job.WorkerNames(), ", "))
		}
		upcoming = append(upcoming, line, "  "+assigned)
	}

	cols := max(30, v.app.width*3/4-12)
	rows := max(8, v.app.height/3)
	mapView := lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render("Operations Map"), v.opsMap.View(cols, rows))

	return lipgloss.JoinVertical(lipgloss.Left,
		chip,
		stats,
		"",
		strings.Join(upcoming, "\n"),
		"",
		mapView,
	)
}
