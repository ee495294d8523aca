package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/fieldops/internal/domain"
)

const (
	msgItemsLoadFailed = "Failed to load items"
	msgItemLoadFailed  = "Failed to load item details"
)

type itemsLoadedMsg struct {
	items []domain.Item
	err   error
}

type itemsView struct {
	app    *App
	table  table.Model
	items  []domain.Item
	loaded bool
}

func newItemsView(app *App) *itemsView {
	return &itemsView{
		app: app,
		table: newTable([]table.Column{
			{Title: "Item", Width: 24},
			{Title: "Description", Width: 40},
			{Title: "Stock", Width: 8},
		}),
	}
}

func (v *itemsView) Init() tea.Cmd {
	backend, ctx := v.app.backend, v.app.ctx
	return func() tea.Msg {
		items, err := backend.ListItems(ctx)
		return itemsLoadedMsg{items: items, err: err}
	}
}

func (v *itemsView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case itemsLoadedMsg:
		v.loaded = true
		if m.err != nil {
			return v.app.loadFailed(msgItemsLoadFailed, m.err)
		}
		v.items = m.items
		v.table.SetRows(itemRows(m.items))
		v.app.statusMsg = fmt.Sprintf("%d item(s)", len(m.items))
		return nil
	case tea.KeyMsg:
		if m.String() == "enter" {
			if idx := v.table.Cursor(); idx >= 0 && idx < len(v.items) {
				return v.app.openItemDetail(v.items[idx].ItemID)
			}
			return nil
		}
	}
	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return cmd
}

func (v *itemsView) hints() []string {
	return []string{"↑/↓ move", "enter details"}
}

func stockLabel(item domain.Item) string {
	if item.TotalStock == nil {
		return "-"
	}
	return strconv.Itoa(*item.TotalStock)
}

func itemRows(items []domain.Item) []table.Row {
	rows := make([]table.Row, len(items))
	for i, it := range items {
		rows[i] = table.Row{it.Label(), strings.TrimSpace(it.ItemDescription), stockLabel(it)}
	}
	return rows
}

func (v *itemsView) View() string {
	if !v.loaded {
		return v.app.loading("items")
	}
	if len(v.items) == 0 {
		return mutedStyle.Render("No items found.")
	}
	v.table.SetHeight(max(5, v.app.height-18))
	return lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render("Items"), v.table.View())
}

type itemLoadedMsg struct {
	itemID string
	item   domain.Item
	jobs   []domain.Job
	err    error
}

type itemDetailView struct {
	app    *App
	itemID string
	item   *domain.Item
	jobs   []domain.Job
	cursor int
}

func newItemDetailView(app *App, itemID string) *itemDetailView {
	return &itemDetailView{app: app, itemID: itemID}
}

func (v *itemDetailView) Init() tea.Cmd {
	backend, ctx, id := v.app.backend, v.app.ctx, v.itemID
	return func() tea.Msg {
		var (
			item domain.Item
			jobs []domain.Job
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			item, err = backend.GetItem(gctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			jobs, err = backend.ListItemJobs(gctx, id)
			return err
		})
		err := g.Wait()
		return itemLoadedMsg{itemID: id, item: item, jobs: jobs, err: err}
	}
}

func (v *itemDetailView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case itemLoadedMsg:
		if m.itemID != v.itemID {
			return nil
		}
		if m.err != nil {
			return v.app.loadFailed(msgItemLoadFailed, m.err)
		}
		v.item = &m.item
		v.jobs = m.jobs
		v.cursor = 0
	case tea.KeyMsg:
		switch m.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.jobs)-1 {
				v.cursor++
			}
		case "enter":
			if v.cursor < len(v.jobs) {
				return v.app.openJobDetail(v.jobs[v.cursor].JobID)
			}
		}
	}
	return nil
}

func (v *itemDetailView) hints() []string {
	return []string{"↑/↓ move", "enter open job"}
}

// quantityFor returns the quantity job requires of this item.
func (v *itemDetailView) quantityFor(job domain.Job) int {
	for _, link := range job.ItemLinks {
		if link.ItemID == v.itemID {
			return link.Quantity()
		}
	}
	return 1
}

func (v *itemDetailView) View() string {
	if v.item == nil {
		return v.app.loading("item")
	}
	it := *v.item
	lines := []string{panelTitleStyle.Render(it.Label())}
	if desc := strings.TrimSpace(it.ItemDescription); desc != "" {
		lines = append(lines, mutedStyle.Render(desc))
	}
	lines = append(lines, field("Total stock", stockLabel(it)), "", labelStyle.Render(fmt.Sprintf("Used by %d job(s)", len(v.jobs))))
	if len(v.jobs) == 0 {
		lines = append(lines, mutedStyle.Render("Not required by any job."))
	}
	for i, job := range v.jobs {
		line := fmt.Sprintf("%s · %s · ×%d", job.DisplayName(), scheduleLabel(job), v.quantityFor(job))
		if i == v.cursor {
			line = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Render("› " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
