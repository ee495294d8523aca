package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/fieldops/internal/calendar"
	"github.com/kingrea/fieldops/internal/domain"
)

const (
	msgWorkersLoadFailed = "Failed to load workers"
	msgWorkerLoadFailed  = "Failed to load worker details"
)

type workersLoadedMsg struct {
	workers []domain.Worker
	err     error
}

type workersView struct {
	app     *App
	table   table.Model
	workers []domain.Worker
	loaded  bool
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#5B8DEF")).
		Bold(false)
	t.SetStyles(styles)
	return t
}

func newWorkersView(app *App) *workersView {
	return &workersView{
		app: app,
		table: newTable([]table.Column{
			{Title: "Name", Width: 22},
			{Title: "Phone", Width: 18},
			{Title: "Branch", Width: 16},
			{Title: "Roles", Width: 30},
		}),
	}
}

func (v *workersView) Init() tea.Cmd {
	backend, ctx := v.app.backend, v.app.ctx
	return func() tea.Msg {
		workers, err := backend.ListWorkers(ctx)
		return workersLoadedMsg{workers: workers, err: err}
	}
}

func (v *workersView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case workersLoadedMsg:
		v.loaded = true
		if m.err != nil {
			return v.app.loadFailed(msgWorkersLoadFailed, m.err)
		}
		v.workers = m.workers
		v.table.SetRows(workerRows(m.workers))
		v.app.statusMsg = fmt.Sprintf("%d worker(s)", len(m.workers))
		return nil
	case tea.KeyMsg:
		if m.String() == "enter" {
			if idx := v.table.Cursor(); idx >= 0 && idx < len(v.workers) {
				return v.app.openWorkerDetail(v.workers[idx].WorkerID)
			}
			return nil
		}
	}
	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return cmd
}

func (v *workersView) hints() []string {
	return []string{"↑/↓ move", "enter schedule"}
}

func workerRows(workers []domain.Worker) []table.Row {
	rows := make([]table.Row, len(workers))
	for i, w := range workers {
		rows[i] = table.Row{w.DisplayName(), w.Phone(), w.BranchName(), joinOr(w.RoleNames(), "-")}
	}
	return rows
}

func (v *workersView) View() string {
	if !v.loaded {
		return v.app.loading("workers")
	}
	if len(v.workers) == 0 {
		return mutedStyle.Render("No workers found.")
	}
	v.table.SetHeight(max(5, v.app.height-18))
	return lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render("Workers"), v.table.View())
}

type workerLoadedMsg struct {
	workerID string
	worker   domain.Worker
	jobs     []domain.Job
	err      error
}

type workerDetailView struct {
	app      *App
	workerID string
	worker   *domain.Worker
	calendar *calendar.Model
}

func newWorkerDetailView(app *App, workerID string) *workerDetailView {
	return &workerDetailView{
		app:      app,
		workerID: workerID,
		calendar: calendar.New(calendar.WithClock(app.now)),
	}
}

func (v *workerDetailView) Init() tea.Cmd {
	backend, ctx, id := v.app.backend, v.app.ctx, v.workerID
	return func() tea.Msg {
		var (
			worker domain.Worker
			jobs   []domain.Job
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			worker, err = backend.GetWorker(gctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			jobs, err = backend.ListWorkerJobs(gctx, id)
			return err
		})
		err := g.Wait()
		return workerLoadedMsg{workerID: id, worker: worker, jobs: jobs, err: err}
	}
}

func (v *workerDetailView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case workerLoadedMsg:
		if m.workerID != v.workerID {
			return nil
		}
		if m.err != nil {
			return v.app.loadFailed(msgWorkerLoadFailed, m.err)
		}
		v.worker = &m.worker
		v.calendar.SetJobs(m.jobs)
		v.app.statusMsg = fmt.Sprintf("%d job(s) assigned", len(m.jobs))
	case tea.KeyMsg:
		switch m.String() {
		case "[", "h":
			v.calendar.Prev()
		case "]", "l":
			v.calendar.Next()
		case "t":
			v.calendar.Today()
		}
	}
	return nil
}

func (v *workerDetailView) hints() []string {
	return []string{"[ prev week", "] next week", "t this week"}
}

func (v *workerDetailView) View() string {
	if v.worker == nil {
		return v.app.loading("worker")
	}
	w := *v.worker
	header := []string{
		panelTitleStyle.Render(w.DisplayName()),
		field("Phone", w.Phone()),
		field("Branch", w.BranchName()),
		field("Roles", joinOr(w.RoleNames(), "None")),
		"",
	}
	width := v.app.width*3/4 - 8
	if width <= 0 {
		width = 80
	}
	return strings.Join(header, "\n") + "\n" + v.calendar.View(width)
}
