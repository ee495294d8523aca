package tui

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/fieldops/internal/api"
	"github.com/kingrea/fieldops/internal/config"
	"github.com/kingrea/fieldops/internal/devapi"
	"github.com/kingrea/fieldops/internal/domain"
	"github.com/kingrea/fieldops/internal/jobform"
	"github.com/kingrea/fieldops/internal/places"
)

// Tuesday, 11 March 2025; the default seed schedules relative to this.
var testNow = time.Date(2025, time.March, 11, 9, 0, 0, 0, time.Local)

func TestMainMenuNavigation(t *testing.T) {
	app, _ := newTestApp(t)
	if got := len(app.mainMenu.Items()); got != 6 {
		t.Fatalf("expected 6 menu items, got %d", got)
	}
	app.mainMenu.Select(1)
	app = press(t, app, "enter")
	if app.state != stateJobs {
		t.Fatalf("expected jobs screen, got %v", app.state)
	}
	jobs := app.current.(*jobsView)
	if len(jobs.jobs) != 20 {
		t.Fatalf("expected 20 seeded jobs, got %d", len(jobs.jobs))
	}
	if !strings.Contains(app.View(), "Electrical Panel Upgrade #1") {
		t.Fatalf("job list should render job names")
	}
	app = press(t, app, "esc")
	if app.state != stateMainMenu {
		t.Fatalf("esc should return to main menu, got %v", app.state)
	}
}

func TestJobDeleteAsksForConfirmation(t *testing.T) {
	app, store := newTestApp(t)
	app = open(t, app, stateJobs)

	app = press(t, app, "d")
	view := app.current.(*jobsView)
	if view.confirm == nil {
		t.Fatalf("d should ask for confirmation")
	}
	app = press(t, app, "n")
	if view.confirm != nil || len(store.ListJobs()) != 20 {
		t.Fatalf("n should cancel without deleting")
	}

	app = press(t, app, "d")
	app = press(t, app, "y")
	if got := len(store.ListJobs()); got != 19 {
		t.Fatalf("expected 19 jobs after delete, got %d", got)
	}
	if got := len(view.jobs); got != 19 {
		t.Fatalf("list should be re-fetched after delete, got %d rows", got)
	}
	if app.notice == nil || app.notice.Message != msgJobDeleted {
		t.Fatalf("expected delete notice, got %+v", app.notice)
	}
}

func TestJobDeleteFailureLeavesListStale(t *testing.T) {
	app, store := newTestApp(t, func(b Backend) Backend { return failingDelete{b} })
	app = open(t, app, stateJobs)
	app = press(t, app, "d")
	app = press(t, app, "y")

	if got := len(store.ListJobs()); got != 20 {
		t.Fatalf("nothing should be deleted, got %d jobs", got)
	}
	if got := len(app.current.(*jobsView).jobs); got != 20 {
		t.Fatalf("list should be left as it was, got %d rows", got)
	}
	if app.notice == nil || app.notice.Kind != jobform.NoticeError || app.notice.Message != msgDeleteFailed {
		t.Fatalf("expected delete failure notice, got %+v", app.notice)
	}
}

func TestLoadFailureShowsNotice(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()
	app := newAppWithBackend(t, api.NewClient(api.WithBaseURL(url), api.WithTimeout(time.Second)))
	app = open(t, app, stateJobs)
	if app.notice == nil || app.notice.Message != msgJobsLoadFailed {
		t.Fatalf("expected load failure notice, got %+v", app.notice)
	}
	app.Update(noticeExpiredMsg{seq: app.noticeSeq})
	if app.notice != nil {
		t.Fatalf("notice should expire")
	}
}

func TestFormCreatesJob(t *testing.T) {
	app, store := newTestApp(t)
	app = drive(t, app, app.openJobForm(""))
	form := app.current.(*formView)
	if !form.loaded {
		t.Fatalf("form should finish loading")
	}

	app = typeText(t, app, "52.52, 13.405")
	app = press(t, app, "enter")
	if s := form.engine.Snapshot(); s.Coordinates == nil {
		t.Fatalf("manual coordinates should set the location")
	}
	app = press(t, app, "tab")
	app = typeText(t, app, "2025-03-20 08:00")
	app = press(t, app, "tab")
	app = typeText(t, app, "2025-03-20 12:00")
	app = press(t, app, "tab")
	app = typeText(t, app, "Boiler Service")
	app = press(t, app, "tab", "tab")
	app = press(t, app, "enter") // first role
	app = press(t, app, "tab")
	app = press(t, app, "enter", "right", "right") // first item, quantity 3

	if !form.engine.CanSubmit() {
		t.Fatalf("form should be ready: %+v", form.engine.Snapshot().Errors)
	}
	app = press(t, app, "ctrl+s")

	if app.notice == nil || app.notice.Message != jobform.MsgJobCreated {
		t.Fatalf("expected create notice, got %+v", app.notice)
	}
	jobs := store.ListJobs()
	if len(jobs) != 21 {
		t.Fatalf("expected 21 jobs, got %d", len(jobs))
	}
	created := findJob(jobs, "Boiler Service")
	if created == nil {
		t.Fatalf("created job missing")
	}
	if len(created.Roles) != 1 || len(created.ItemLinks) != 1 || created.ItemLinks[0].RequiredQuantity != 3 {
		t.Fatalf("unexpected created job: roles=%d links=%+v", len(created.Roles), created.ItemLinks)
	}
	if form.address.Value() != "" || form.name.Value() != "" {
		t.Fatalf("inputs should reset after create")
	}

	app.Update(navigateMsg{to: stateJobs})
	if app.state != stateJobs {
		t.Fatalf("expected navigation to the job list, got %v", app.state)
	}
}

func TestFormBlocksSubmitWithoutRequiredFields(t *testing.T) {
	app, store := newTestApp(t)
	app = drive(t, app, app.openJobForm(""))
	app = press(t, app, "ctrl+s")

	form := app.current.(*formView)
	errs := form.engine.Snapshot().Errors
	for _, f := range []jobform.Field{jobform.FieldLocation, jobform.FieldDatetime, jobform.FieldRoles} {
		if !errs.Has(f) {
			t.Fatalf("expected %s error, got %v", f, errs.Fields())
		}
	}
	if app.statusMsg != jobform.MsgFixErrors {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
	if len(store.ListJobs()) != 20 {
		t.Fatalf("nothing should be sent")
	}
	if !strings.Contains(app.View(), jobform.FieldRoles.Message()) {
		t.Fatalf("field errors should render")
	}
}

func TestFormEditBackfillsInputs(t *testing.T) {
	app, store := newTestApp(t)
	job := store.ListJobs()[0]
	app = drive(t, app, app.openJobForm(job.JobID))
	form := app.current.(*formView)
	if form.name.Value() != job.JobName {
		t.Fatalf("name should be back-filled, got %q", form.name.Value())
	}
	if form.start.Value() == "" {
		t.Fatalf("start should be back-filled")
	}
	if !strings.Contains(app.View(), "Edit Job") {
		t.Fatalf("edit title missing")
	}
}

func TestFormRoleDialog(t *testing.T) {
	app, store := newTestApp(t)
	app = drive(t, app, app.openJobForm(""))
	form := app.current.(*formView)
	form.setFocus(fieldRoles)

	app = press(t, app, "ctrl+n")
	if form.engine.Snapshot().Dialog != jobform.DialogRole {
		t.Fatalf("ctrl+n should open the role dialog")
	}
	app = typeText(t, app, "Roofer")
	app = press(t, app, "esc")
	if form.engine.Snapshot().Dialog != jobform.DialogNone || app.state != stateJobForm {
		t.Fatalf("esc should only close the dialog")
	}

	app = press(t, app, "ctrl+n")
	if form.dialogName.Value() != "Roofer" {
		t.Fatalf("typed text should survive cancel, got %q", form.dialogName.Value())
	}
	app = press(t, app, "enter")
	s := form.engine.Snapshot()
	if s.Dialog != jobform.DialogNone || len(s.SelectedRoles) != 1 || s.SelectedRoles[0].RoleName != "Roofer" {
		t.Fatalf("role should be created and selected: %+v", s.SelectedRoles)
	}
	if len(store.ListRoles()) != 7 {
		t.Fatalf("expected 7 roles, got %d", len(store.ListRoles()))
	}
	if app.notice == nil || app.notice.Message != jobform.MsgRoleCreated {
		t.Fatalf("expected role notice, got %+v", app.notice)
	}
}

func TestFormDialogsKeepSeparateDrafts(t *testing.T) {
	app, store := newTestApp(t)
	app = drive(t, app, app.openJobForm(""))
	form := app.current.(*formView)
	itemsBefore := len(store.ListItems())

	form.setFocus(fieldRoles)
	app = press(t, app, "ctrl+n")
	app = typeText(t, app, "Roofer")
	app = press(t, app, "esc")

	form.setFocus(fieldItems)
	app = press(t, app, "ctrl+n")
	if form.engine.Snapshot().Dialog != jobform.DialogItem {
		t.Fatalf("ctrl+n on items should open the item dialog")
	}
	if got := form.dialogName.Value(); got != "" {
		t.Fatalf("item dialog should start from its own draft, got %q", got)
	}
	app = press(t, app, "enter")
	if form.engine.Snapshot().Dialog != jobform.DialogItem || len(store.ListItems()) != itemsBefore {
		t.Fatalf("empty item name should keep the dialog open without posting")
	}

	app = typeText(t, app, "Ladder")
	app = press(t, app, "enter")
	s := form.engine.Snapshot()
	if len(store.ListItems()) != itemsBefore+1 || len(s.SelectedItems) != 1 || s.SelectedItems[0].ItemName != "Ladder" {
		t.Fatalf("item should be created and selected: %+v", s.SelectedItems)
	}
	if app.notice == nil || app.notice.Message != jobform.MsgItemCreated {
		t.Fatalf("expected item notice, got %+v", app.notice)
	}

	form.setFocus(fieldRoles)
	app = press(t, app, "ctrl+n")
	if got := form.dialogName.Value(); got != "Roofer" {
		t.Fatalf("role draft should survive the item dialog, got %q", got)
	}
}

func TestFormEditWithoutJobRefusesSubmit(t *testing.T) {
	app, store := newTestApp(t, func(b Backend) Backend { return failingGetJob{b} })
	job := store.ListJobs()[0]
	app = drive(t, app, app.openJobForm(job.JobID))
	form := app.current.(*formView)

	form.engine.SelectPlace(places.Place{
		FormattedAddress: "Alexanderplatz 1, Berlin",
		Geometry:         &places.Geometry{Location: &places.LatLng{Lat: 52.5, Lng: 13.4}},
	})
	form.engine.SetStart(testNow.Add(time.Hour))
	form.engine.ToggleRole(form.engine.Snapshot().Roles[0].RoleID)
	app = press(t, app, "ctrl+s")

	if form.submitting || app.statusMsg != jobform.MsgJobLoadFailed {
		t.Fatalf("submit should be refused, status %q", app.statusMsg)
	}
	stored, _ := store.GetJob(job.JobID)
	if stored.JobName != job.JobName || stored.Latitude != job.Latitude {
		t.Fatalf("stored job should be untouched: %+v", stored)
	}
}

func TestAddressAutocomplete(t *testing.T) {
	finder := &stubFinder{
		predictions: []places.Prediction{{Description: "Alexanderplatz 1, Berlin", PlaceID: "p1"}},
		place: places.Place{
			PlaceID:          "p1",
			FormattedAddress: "Alexanderplatz 1, 10178 Berlin, Germany",
			Geometry:         &places.Geometry{Location: &places.LatLng{Lat: 52.5219, Lng: 13.4132}},
			AddressComponents: []places.AddressComponent{
				{LongName: "1", Types: []string{places.TagStreetNumber}},
				{LongName: "Alexanderplatz", Types: []string{places.TagRoute}},
				{LongName: "Berlin", Types: []string{places.TagLocality}},
				{LongName: "Germany", Types: []string{places.TagCountry}},
			},
		},
	}
	app, _ := newTestApp(t)
	app.places = finder
	app = drive(t, app, app.openJobForm(""))
	form := app.current.(*formView)

	app = typeText(t, app, "Alex")
	app = drive(t, app, form.lookup(form.lookupSeq, "Alex"))
	if len(form.predictions) != 1 {
		t.Fatalf("expected suggestions, got %d", len(form.predictions))
	}
	app = press(t, app, "enter")
	s := form.engine.Snapshot()
	if s.Coordinates == nil || s.Address.City != "Berlin" || s.Address.Country != "Germany" {
		t.Fatalf("place should populate location: %+v", s.Address)
	}
	if form.address.Value() != "Alexanderplatz 1, 10178 Berlin, Germany" {
		t.Fatalf("address text should be the formatted address, got %q", form.address.Value())
	}
}

func TestWorkerDetailShowsCalendar(t *testing.T) {
	app, store := newTestApp(t)
	app = open(t, app, stateWorkers)
	if !strings.Contains(app.View(), "Alice") {
		t.Fatalf("worker table should list names")
	}
	worker := store.ListWorkers()[0]
	app = drive(t, app, app.openWorkerDetail(worker.WorkerID))
	view := app.View()
	if !strings.Contains(view, "Weekly Schedule") {
		t.Fatalf("worker detail should render the calendar")
	}
	if !strings.Contains(view, "07:00 - 15:00") {
		t.Fatalf("alice's first job should be on the calendar")
	}
	detail := app.current.(*workerDetailView)
	before := detail.calendar.Start()
	app = press(t, app, "]")
	if !detail.calendar.Start().Equal(before.AddDate(0, 0, 7)) {
		t.Fatalf("] should move to next week")
	}
	app = press(t, app, "esc")
	if app.state != stateWorkers {
		t.Fatalf("esc should return to workers, got %v", app.state)
	}
}

func TestItemDetailListsJobs(t *testing.T) {
	app, store := newTestApp(t)
	var drill domain.Item
	for _, it := range store.ListItems() {
		if strings.Contains(strings.ToLower(it.ItemName), "drill") {
			drill = it
		}
	}
	app = drive(t, app, app.openItemDetail(drill.ItemID))
	view := app.View()
	if !strings.Contains(view, "Total stock") || !strings.Contains(view, "21") {
		t.Fatalf("item detail should show total stock:\n%s", view)
	}
	if !strings.Contains(view, "Electrical Panel Upgrade #1") {
		t.Fatalf("item detail should list jobs using the item")
	}
}

func TestDashboardSummary(t *testing.T) {
	app, _ := newTestApp(t)
	app = open(t, app, stateDashboard)
	view := app.View()
	for _, want := range []string{"Active Fleet", "Upcoming Jobs", "Operations Map", "Pending"} {
		if !strings.Contains(view, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
	app = press(t, app, "tab")
	dash := app.current.(*dashboardView)
	if _, ok := dash.opsMap.Selected(); !ok {
		t.Fatalf("tab should select a pin")
	}
	app = press(t, app, "esc")
	if app.state != stateDashboard {
		t.Fatalf("esc should first clear the pin selection")
	}
}

func newTestApp(t *testing.T, wrap ...func(Backend) Backend) (*App, *devapi.Store) {
	t.Helper()
	seed, err := devapi.DefaultSeed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := devapi.NewStore()
	if err := store.Apply(seed, testNow); err != nil {
		t.Fatalf("apply seed: %v", err)
	}
	srv := devapi.NewServer(devapi.Settings{}, devapi.WithStore(store))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	var backend Backend = api.NewClient(api.WithBaseURL(ts.URL))
	for _, w := range wrap {
		backend = w(backend)
	}
	return newAppWithBackend(t, backend), store
}

func newAppWithBackend(t *testing.T, backend Backend) *App {
	t.Helper()
	projectDir := t.TempDir()
	if err := config.InitDir(projectDir); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	app, err := NewApp(projectDir,
		WithBackend(backend),
		WithPlaceFinder(&stubFinder{}),
		WithClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	app.Update(tea.WindowSizeMsg{Width: 160, Height: 60})
	return app
}

func open(t *testing.T, app *App, to appState) *App {
	t.Helper()
	model, cmd := app.navigate(to)
	return drive(t, model.(*App), cmd)
}

func press(t *testing.T, app *App, keys ...string) *App {
	t.Helper()
	for _, key := range keys {
		model, cmd := app.Update(keyMsg(key))
		app = drive(t, model.(*App), cmd)
	}
	return app
}

func typeText(t *testing.T, app *App, text string) *App {
	t.Helper()
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return drive(t, model.(*App), cmd)
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// drive runs commands until the app settles. Commands that block longer than
// a short deadline (ticks, cursor blink) are dropped, as are spinner frames.
func drive(t *testing.T, app *App, cmd tea.Cmd) *App {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatalf("command loop did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := runWithDeadline(next, 250*time.Millisecond)
		if !ok || msg == nil {
			continue
		}
		switch m := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, m...)
			continue
		case spinner.TickMsg, noticeExpiredMsg, navigateMsg:
			continue
		}
		model, nextCmd := app.Update(msg)
		app = model.(*App)
		queue = append(queue, nextCmd)
	}
	return app
}

func runWithDeadline(cmd tea.Cmd, d time.Duration) (tea.Msg, bool) {
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg, true
	case <-time.After(d):
		return nil, false
	}
}

func findJob(jobs []domain.Job, name string) *domain.Job {
	for i := range jobs {
		if jobs[i].JobName == name {
			return &jobs[i]
		}
	}
	return nil
}

type failingDelete struct {
	Backend
}

func (failingDelete) DeleteJob(context.Context, string) error {
	return errors.New("backend unavailable")
}

type failingGetJob struct {
	Backend
}

func (failingGetJob) GetJob(context.Context, string) (domain.Job, error) {
	return domain.Job{}, errors.New("backend unavailable")
}

type stubFinder struct {
	predictions []places.Prediction
	place       places.Place
}

func (f *stubFinder) Enabled() bool { return len(f.predictions) > 0 }

func (f *stubFinder) Autocomplete(context.Context, string) ([]places.Prediction, error) {
	return f.predictions, nil
}

func (f *stubFinder) Details(context.Context, string) (places.Place, error) {
	return f.place, nil
}
