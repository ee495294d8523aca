// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for fieldops.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// Every REST call runs inside a tea.Cmd and reports back as a message, so the
// Update loop never blocks on the network.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ternarybob/arbor"

	"github.com/kingrea/fieldops/internal/api"
	"github.com/kingrea/fieldops/internal/config"
	"github.com/kingrea/fieldops/internal/jobform"
	"github.com/kingrea/fieldops/internal/logbook"
	"github.com/kingrea/fieldops/internal/places"
)

// appState represents which "screen" we're on
type appState int

const (
	stateMainMenu     appState = iota // Main menu
	stateDashboard                    // Operations overview with map
	stateJobs                         // Job list
	stateJobDetail                    // Single job
	stateJobForm                      // Create or edit a job
	stateWorkers                      // Worker table
	stateWorkerDetail                 // Worker with weekly calendar
	stateItems                        // Item table
	stateItemDetail                   // Item with the jobs using it
)

const (
	// noticeTTL is how long a transient notice stays in the footer.
	noticeTTL    = 4 * time.Second
	logPanelSize = 8
)

// screen is a sub-view hosted by the App. Update receives every message the
// App does not consume itself.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
}

// escConsumer lets a screen swallow esc (closing a dialog or a confirmation)
// before the App treats it as "back".
type escConsumer interface {
	consumeEsc() bool
}

// hinter supplies the key help shown in the side panel.
type hinter interface {
	hints() []string
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithBackend overrides the REST client built from config.
func WithBackend(backend Backend) AppOption {
	return func(a *App) {
		if backend != nil {
			a.backend = backend
		}
	}
}

// WithPlaceFinder overrides the address autocomplete provider.
func WithPlaceFinder(finder PlaceFinder) AppOption {
	return func(a *App) {
		if finder != nil {
			a.places = finder
		}
	}
}

// WithLogger sets the structured logger shared by the screens.
func WithLogger(logger arbor.ILogger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used by the dashboard and calendar.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

type noticeExpiredMsg struct{ seq int }

type navigateMsg struct{ to appState }

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	ctx     context.Context
	config  *config.Config
	backend Backend
	places  PlaceFinder
	logger  arbor.ILogger
	logbook *logbook.Logbook
	now     func() time.Time

	// UI components
	mainMenu list.Model
	spinner  spinner.Model
	current  screen
	// origin remembers where the job detail and form were opened from.
	origin appState

	statusMsg string
	notice    *jobform.Notice
	noticeSeq int

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// NewApp creates a new App instance for the project directory. The REST and
// Places clients are built from the project config unless overridden.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	logPath := filepath.Join(cfg.LogsDir(), "activity.log")
	lb, err := logbook.New(logPath)
	if err == nil {
		lb.Info("Session opened · backend %s", cfg.APIBaseURL())
	}

	mainMenu := list.New(buildMainMenu(), list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "⬡ FIELD OPERATIONS"
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))

	app := &App{
		state:    stateMainMenu,
		ctx:      context.Background(),
		config:   cfg,
		logger:   arbor.NewNoOpLogger(),
		logbook:  lb,
		now:      time.Now,
		mainMenu: mainMenu,
		spinner:  spin,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.backend == nil {
		app.backend = api.NewClient(
			api.WithBaseURL(cfg.APIBaseURL()),
			api.WithTimeout(cfg.APITimeout()),
			api.WithRateLimit(cfg.Project.API.RateLimit),
			api.WithLogger(app.logger),
		)
	}
	if app.places == nil {
		pc := cfg.Project.Places
		app.places = places.New(pc.APIKey,
			places.WithBaseURL(pc.BaseURL),
			places.WithLanguage(pc.Language),
			places.WithRegion(pc.Region),
			places.WithLogger(app.logger),
		)
	}
	return app, nil
}

// buildMainMenu creates the main menu items
func buildMainMenu() []list.Item {
	return []list.Item{
		menuItem{title: "Dashboard", desc: "Upcoming jobs, fleet and the operations map"},
		menuItem{title: "Jobs", desc: "Browse, edit and delete jobs"},
		menuItem{title: "Workers", desc: "Crew roster and weekly schedules"},
		menuItem{title: "Items", desc: "Equipment stock and where it is used"},
		menuItem{title: "New Job", desc: "Create a job"},
		menuItem{title: "Exit", desc: "Quit fieldops"},
	}
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook != nil {
		a.logbook.Info(format, args...)
	}
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook != nil {
		a.logbook.Warn(format, args...)
	}
}

func (a *App) logError(format string, args ...any) {
	if a.logbook != nil {
		a.logbook.Error(format, args...)
	}
}

// loadFailed records a data-load failure and surfaces it once.
func (a *App) loadFailed(message string, err error) tea.Cmd {
	a.logger.Error().Err(err).Msg(message)
	return a.showNotice(jobform.Notice{Kind: jobform.NoticeError, Message: message})
}

// showNotice puts a transient message in the footer and schedules its
// removal.
func (a *App) showNotice(n jobform.Notice) tea.Cmd {
	a.noticeSeq++
	seq := a.noticeSeq
	a.notice = &n
	if n.Kind == jobform.NoticeError {
		a.logError("%s", n.Message)
	} else {
		a.logInfo("%s", n.Message)
	}
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update handles all incoming messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.mainMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case noticeExpiredMsg:
		if msg.seq == a.noticeSeq {
			a.notice = nil
		}
		return a, nil

	case navigateMsg:
		return a.navigate(msg.to)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.logInfo("Session closed")
			return a, tea.Quit

		case "q":
			if a.state == stateMainMenu {
				a.logInfo("Session closed")
				return a, tea.Quit
			}

		case "esc":
			if c, ok := a.current.(escConsumer); ok && c.consumeEsc() {
				return a, nil
			}
			if a.state != stateMainMenu {
				return a.goBack()
			}

		case "enter":
			if a.state == stateMainMenu {
				return a.handleMainMenuSelection()
			}
		}
	}

	if a.state == stateMainMenu {
		var cmd tea.Cmd
		a.mainMenu, cmd = a.mainMenu.Update(msg)
		cmds = append(cmds, cmd)
	} else if a.current != nil {
		cmds = append(cmds, a.current.Update(msg))
	}

	return a, tea.Batch(cmds...)
}

// handleMainMenuSelection processes menu item selection
func (a *App) handleMainMenuSelection() (tea.Model, tea.Cmd) {
	item, ok := a.mainMenu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}
	a.logInfo("Menu · %s selected", item.title)

	switch item.title {
	case "Dashboard":
		return a.navigate(stateDashboard)
	case "Jobs":
		return a.navigate(stateJobs)
	case "Workers":
		return a.navigate(stateWorkers)
	case "Items":
		return a.navigate(stateItems)
	case "New Job":
		a.origin = stateMainMenu
		return a.openScreen(stateJobForm, newFormView(a, ""))
	case "Exit":
		return a, tea.Quit
	}
	return a, nil
}

// navigate opens a top-level screen.
func (a *App) navigate(to appState) (tea.Model, tea.Cmd) {
	switch to {
	case stateDashboard:
		return a.openScreen(to, newDashboardView(a))
	case stateJobs:
		return a.openScreen(to, newJobsView(a))
	case stateWorkers:
		return a.openScreen(to, newWorkersView(a))
	case stateItems:
		return a.openScreen(to, newItemsView(a))
	default:
		return a.returnToMainMenu()
	}
}

func (a *App) openScreen(state appState, s screen) (tea.Model, tea.Cmd) {
	a.state = state
	a.current = s
	a.statusMsg = ""
	return a, s.Init()
}

func (a *App) openJobDetail(jobID string) tea.Cmd {
	a.origin = a.state
	_, cmd := a.openScreen(stateJobDetail, newJobDetailView(a, jobID))
	return cmd
}

func (a *App) openJobForm(jobID string) tea.Cmd {
	if a.state != stateJobDetail {
		a.origin = a.state
	}
	_, cmd := a.openScreen(stateJobForm, newFormView(a, jobID))
	return cmd
}

func (a *App) openWorkerDetail(workerID string) tea.Cmd {
	_, cmd := a.openScreen(stateWorkerDetail, newWorkerDetailView(a, workerID))
	return cmd
}

func (a *App) openItemDetail(itemID string) tea.Cmd {
	_, cmd := a.openScreen(stateItemDetail, newItemDetailView(a, itemID))
	return cmd
}

// goBack walks one level up from the current screen.
func (a *App) goBack() (tea.Model, tea.Cmd) {
	switch a.state {
	case stateJobDetail, stateJobForm:
		if a.origin == stateDashboard || a.origin == stateJobs {
			return a.navigate(a.origin)
		}
		if a.state == stateJobDetail {
			return a.navigate(stateJobs)
		}
		return a.returnToMainMenu()
	case stateWorkerDetail:
		return a.navigate(stateWorkers)
	case stateItemDetail:
		return a.navigate(stateItems)
	default:
		return a.returnToMainMenu()
	}
}

// returnToMainMenu transitions back to the main menu
func (a *App) returnToMainMenu() (tea.Model, tea.Cmd) {
	a.state = stateMainMenu
	a.current = nil
	a.statusMsg = ""
	return a, nil
}

// loading renders the spinner line used while a screen waits on the API.
func (a *App) loading(what string) string {
	return fmt.Sprintf("%s Loading %s…", a.spinner.View(), what)
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/4)
	leftWidth := width - rightWidth - 4
	if leftWidth < 60 {
		leftWidth = width - 4
		rightWidth = 0
	}
	var content string
	if a.state == stateMainMenu {
		a.mainMenu.SetSize(max(20, leftWidth-4), max(10, a.height-14))
		content = a.mainMenu.View()
	} else if a.current != nil {
		content = a.current.View()
	}
	return a.renderBoard(content, leftWidth, rightWidth)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).MarginTop(1)
	successStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#34C759"))
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C"))
	labelStyle      = lipgloss.NewStyle().Bold(true)
)

func (a *App) renderBoard(mainContent string, leftWidth, rightWidth int) string {
	header := headerStyle.Render("⬡ FIELDOPS")
	if strings.TrimSpace(mainContent) == "" {
		mainContent = "Nothing to show."
	}
	leftBox := boxStyle.Width(max(20, leftWidth)).Render(mainContent)
	body := leftBox
	if rightWidth > 0 {
		rightBox := boxStyle.Width(max(20, rightWidth)).Render(a.renderSidePanel())
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *App) renderSidePanel() string {
	lines := []string{panelTitleStyle.Render("Backend")}
	base := ""
	if c, ok := a.backend.(interface{ BaseURL() string }); ok {
		base = c.BaseURL()
	}
	if base == "" && a.config != nil {
		base = a.config.APIBaseURL()
	}
	lines = append(lines, mutedStyle.Render(base))
	if a.places != nil && a.places.Enabled() {
		lines = append(lines, mutedStyle.Render("Address lookup: on"))
	} else {
		lines = append(lines, warnStyle.Render("Address lookup: off (enter lat, lng)"))
	}
	keys := []string{"esc back", "ctrl+c quit"}
	if a.state == stateMainMenu {
		keys = []string{"enter open", "q quit"}
	} else if h, ok := a.current.(hinter); ok {
		keys = append(h.hints(), keys...)
	}
	lines = append(lines, "", panelTitleStyle.Render("Keys"))
	for _, k := range keys {
		lines = append(lines, mutedStyle.Render(k))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelSize)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := panelTitleStyle.Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderFooter() string {
	footer := lipgloss.NewStyle().MarginTop(1)
	if a.notice != nil {
		if a.notice.Kind == jobform.NoticeError {
			return footer.Render(errorStyle.Render("✗ " + a.notice.Message))
		}
		return footer.Render(successStyle.Render("✓ " + a.notice.Message))
	}
	return footer.Foreground(lipgloss.Color("#888888")).Render(a.statusMsg)
}
