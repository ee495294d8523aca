package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/fieldops/internal/domain"
	"github.com/kingrea/fieldops/internal/jobform"
)

const (
	msgJobsLoadFailed = "Failed to load jobs"
	msgJobDeleted     = "Job deleted successfully"
	msgDeleteFailed   = "Failed to delete job"
)

// jobItem implements list.Item for a job row.
type jobItem struct {
	job domain.Job
}

func (i jobItem) Title() string { return i.job.DisplayName() }

func (i jobItem) Description() string {
	parts := []string{scheduleLabel(i.job)}
	if city := strings.TrimSpace(i.job.City); city != "" {
		parts = append(parts, city)
	}
	if i.job.IsAssigned() {
		parts = append(parts, fmt.Sprintf("%d worker(s)", len(i.job.Workers)))
	} else {
		parts = append(parts, "Unassigned")
	}
	return strings.Join(parts, " · ")
}

func (i jobItem) FilterValue() string { return i.job.DisplayName() }

type jobsLoadedMsg struct {
	jobs []domain.Job
	err  error
}

type jobDeletedMsg struct {
	jobID string
	err   error
}

type jobsView struct {
	app     *App
	list    list.Model
	jobs    []domain.Job
	loaded  bool
	confirm *domain.Job
}

func newJobsView(app *App) *jobsView {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Jobs"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return &jobsView{app: app, list: l}
}

func (v *jobsView) Init() tea.Cmd {
	return v.fetch()
}

func (v *jobsView) fetch() tea.Cmd {
	backend, ctx := v.app.backend, v.app.ctx
	return func() tea.Msg {
		jobs, err := backend.ListJobs(ctx)
		return jobsLoadedMsg{jobs: jobs, err: err}
	}
}

func (v *jobsView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case jobsLoadedMsg:
		v.loaded = true
		if m.err != nil {
			return v.app.loadFailed(msgJobsLoadFailed, m.err)
		}
		v.setJobs(m.jobs)
		v.app.statusMsg = fmt.Sprintf("%d job(s)", len(m.jobs))
		return nil
	case jobDeletedMsg:
		if m.err != nil {
			// The list is left as it was; no retry.
			v.app.logger.Error().Err(m.err).Str("job_id", m.jobID).Msg(msgDeleteFailed)
			return v.app.showNotice(jobform.Notice{Kind: jobform.NoticeError, Message: msgDeleteFailed})
		}
		v.app.logger.Info().Str("job_id", m.jobID).Msg("job deleted")
		return tea.Batch(
			v.app.showNotice(jobform.Notice{Kind: jobform.NoticeSuccess, Message: msgJobDeleted}),
			v.fetch(),
		)
	case tea.KeyMsg:
		return v.handleKeyMsg(m)
	}
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return cmd
}

func (v *jobsView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if v.confirm != nil {
		switch msg.String() {
		case "y", "Y":
			job := *v.confirm
			v.confirm = nil
			return v.delete(job.JobID)
		case "n", "N":
			v.confirm = nil
			v.app.statusMsg = "Delete cancelled"
		}
		return nil
	}
	switch msg.String() {
	case "enter":
		if job, ok := v.selected(); ok {
			return v.app.openJobDetail(job.JobID)
		}
		return nil
	case "n":
		return v.app.openJobForm("")
	case "e":
		if job, ok := v.selected(); ok {
			return v.app.openJobForm(job.JobID)
		}
		return nil
	case "d":
		if job, ok := v.selected(); ok {
			v.confirm = &job
		}
		return nil
	case "r":
		return v.fetch()
	}
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return cmd
}

func (v *jobsView) consumeEsc() bool {
	if v.confirm == nil {
		return false
	}
	v.confirm = nil
	return true
}

func (v *jobsView) hints() []string {
	return []string{"enter details", "n new job", "e edit", "d delete", "r refresh"}
}

func (v *jobsView) delete(jobID string) tea.Cmd {
	backend, ctx := v.app.backend, v.app.ctx
	v.app.logInfo("Deleting job %s", jobID)
	return func() tea.Msg {
		return jobDeletedMsg{jobID: jobID, err: backend.DeleteJob(ctx, jobID)}
	}
}

func (v *jobsView) setJobs(jobs []domain.Job) {
	v.jobs = jobs
	items := make([]list.Item, len(jobs))
	for i, job := range jobs {
		items[i] = jobItem{job: job}
	}
	v.list.SetItems(items)
}

func (v *jobsView) selected() (domain.Job, bool) {
	item, ok := v.list.SelectedItem().(jobItem)
	if !ok {
		return domain.Job{}, false
	}
	return item.job, true
}

func (v *jobsView) View() string {
	if !v.loaded {
		return v.app.loading("jobs")
	}
	v.list.SetSize(max(20, v.app.width/2), max(10, v.app.height-16))
	view := v.list.View()
	if len(v.jobs) == 0 {
		view = lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render("Jobs"), mutedStyle.Render("No jobs yet. Press n to create one."))
	}
	if v.confirm != nil {
		prompt := warnStyle.Render(fmt.Sprintf("Delete %q? This cannot be undone. (y/n)", v.confirm.DisplayName()))
		view = lipgloss.JoinVertical(lipgloss.Left, view, prompt)
	}
	return view
}

type jobLoadedMsg struct {
	jobID string
	job   domain.Job
	err   error
}

type jobDetailView struct {
	app   *App
	jobID string
	job   *domain.Job
}

func newJobDetailView(app *App, jobID string) *jobDetailView {
	return &jobDetailView{app: app, jobID: jobID}
}

func (v *jobDetailView) Init() tea.Cmd {
	backend, ctx, id := v.app.backend, v.app.ctx, v.jobID
	return func() tea.Msg {
		job, err := backend.GetJob(ctx, id)
		return jobLoadedMsg{jobID: id, job: job, err: err}
	}
}

func (v *jobDetailView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case jobLoadedMsg:
		if m.jobID != v.jobID {
			return nil
		}
		if m.err != nil {
			return v.app.loadFailed(jobform.MsgJobLoadFailed, m.err)
		}
		v.job = &m.job
	case tea.KeyMsg:
		if m.String() == "e" {
			return v.app.openJobForm(v.jobID)
		}
	}
	return nil
}

func (v *jobDetailView) hints() []string {
	return []string{"e edit"}
}

func (v *jobDetailView) View() string {
	if v.job == nil {
		return v.app.loading("job")
	}
	return renderJob(*v.job)
}

func renderJob(job domain.Job) string {
	lines := []string{panelTitleStyle.Render(job.DisplayName())}
	if desc := strings.TrimSpace(job.JobDescription); desc != "" {
		lines = append(lines, mutedStyle.Render(desc))
	}
	lines = append(lines, "",
		field("Address", addressLabel(job)),
		field("Coordinates", job.Coordinates().String()),
		field("Schedule", scheduleLabel(job)),
		field("Roles", joinOr(job.RoleNames(), "None")),
		field("Workers", joinOr(job.WorkerNames(), "Unassigned")),
	)
	if len(job.ItemLinks) == 0 {
		lines = append(lines, field("Items", "None"))
	} else {
		lines = append(lines, labelStyle.Render("Items"))
		for _, link := range job.ItemLinks {
			lines = append(lines, fmt.Sprintf("  %s ×%d", link.Item.Label(), link.Quantity()))
		}
	}
	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return labelStyle.Render(label+": ") + value
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

func addressLabel(job domain.Job) string {
	street := strings.TrimSpace(job.Street + " " + job.HouseNumber)
	city := strings.TrimSpace(job.PostalCode + " " + job.City)
	var parts []string
	for _, p := range []string{street, city, strings.TrimSpace(job.Country)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return joinOr(parts, "No address")
}

// scheduleLabel renders "Mar 10, 2025 07:00 - 15:00" style ranges.
func scheduleLabel(job domain.Job) string {
	start, ok := job.Start()
	if !ok {
		return "Not scheduled"
	}
	start = start.Local()
	label := start.Format("Jan 2, 2006 15:04")
	if end, ok := job.End(); ok {
		end = end.Local()
		if end.YearDay() == start.YearDay() && end.Year() == start.Year() {
			label += " - " + end.Format("15:04")
		} else {
			label += " - " + end.Format("Jan 2, 2006 15:04")
		}
	}
	return label
}
