package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/fieldops/internal/jobform"
	"github.com/kingrea/fieldops/internal/places"
)

const (
	// dateLayout is how start and end are typed.
	dateLayout = "2006-01-02 15:04"
	// lookupDelay debounces autocomplete requests while typing.
	lookupDelay    = 300 * time.Millisecond
	minLookupChars = 3
	pickerRows     = 6

	msgLookupFailed = "Failed to look up address"
)

type formField int

const (
	fieldAddress formField = iota
	fieldStart
	fieldEnd
	fieldName
	fieldDescription
	fieldRoles
	fieldItems
	fieldSubmit
	fieldCount
)

type formLoadedMsg struct{ err error }

type placeLookupMsg struct {
	seq   int
	query string
}

type predictionsMsg struct {
	seq         int
	predictions []places.Prediction
	err         error
}

type placeResolvedMsg struct {
	place places.Place
	err   error
}

type formSubmittedMsg struct {
	outcome jobform.Outcome
	err     error
}

type dialogDoneMsg struct {
	notice jobform.Notice
	err    error
}

type formView struct {
	app    *App
	engine *jobform.Engine

	focus       formField
	address     textinput.Model
	start       textinput.Model
	end         textinput.Model
	name        textinput.Model
	description textinput.Model

	roleFilter textinput.Model
	itemFilter textinput.Model
	roleCursor int
	itemCursor int

	predictions      []places.Prediction
	predictionCursor int
	lookupSeq        int

	dialogName  textinput.Model
	dialogDesc  textinput.Model
	dialogFocus int

	loaded     bool
	submitting bool
}

func newInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = width
	ti.Prompt = "› "
	return ti
}

func newFormView(app *App, jobID string) *formView {
	v := &formView{
		app:         app,
		engine:      jobform.New(app.backend, jobform.WithJobID(jobID), jobform.WithLogger(app.logger)),
		address:     newInput("Search for an address", 48),
		start:       newInput(dateLayout, 20),
		end:         newInput(dateLayout+" (optional)", 20),
		name:        newInput("Job name (optional)", 40),
		description: newInput("Description (optional)", 48),
		roleFilter:  newInput("Filter roles", 24),
		itemFilter:  newInput("Filter items", 24),
		dialogName:  newInput("Name", 32),
		dialogDesc:  newInput("Description (optional)", 40),
	}
	v.address.Focus()
	return v
}

func (v *formView) Init() tea.Cmd {
	engine, ctx := v.engine, v.app.ctx
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return formLoadedMsg{err: engine.Load(ctx)}
	})
}

func (v *formView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case formLoadedMsg:
		v.loaded = true
		if m.err != nil {
			return v.app.showNotice(noticeOf(m.err, jobform.MsgLoadFailed))
		}
		v.syncInputs()
		return nil
	case placeLookupMsg:
		if m.seq != v.lookupSeq {
			return nil
		}
		return v.lookup(m.seq, m.query)
	case predictionsMsg:
		if m.seq != v.lookupSeq {
			return nil
		}
		if m.err != nil {
			v.app.logger.Warn().Err(m.err).Msg("autocomplete failed")
			v.predictions = nil
			return nil
		}
		v.predictions = m.predictions
		v.predictionCursor = 0
		return nil
	case placeResolvedMsg:
		if m.err != nil {
			v.app.logger.Error().Err(m.err).Msg(msgLookupFailed)
			return v.app.showNotice(jobform.Notice{Kind: jobform.NoticeError, Message: msgLookupFailed})
		}
		v.applyPlace(m.place)
		return nil
	case formSubmittedMsg:
		v.submitting = false
		cmds := []tea.Cmd{v.app.showNotice(m.outcome.Notice)}
		if m.err == nil {
			v.syncInputs()
		}
		if after := m.outcome.NavigateAfter; after > 0 {
			cmds = append(cmds, tea.Tick(after, func(time.Time) tea.Msg {
				return navigateMsg{to: stateJobs}
			}))
		}
		return tea.Batch(cmds...)
	case dialogDoneMsg:
		if m.err != nil {
			// The dialog stays open for another attempt.
			return tea.Batch(v.app.showNotice(m.notice), v.openDialog())
		}
		v.dialogName.SetValue("")
		v.dialogDesc.SetValue("")
		return v.app.showNotice(m.notice)
	case tea.KeyMsg:
		if v.engine.Snapshot().Dialog != jobform.DialogNone {
			return v.handleDialogKey(m)
		}
		return v.handleKeyMsg(m)
	default:
		if in := v.inputFor(v.focus); in != nil {
			var cmd tea.Cmd
			*in, cmd = in.Update(msg)
			return cmd
		}
	}
	return nil
}

// noticeOf extracts the notice carried by a jobform failure.
func noticeOf(err error, fallback string) jobform.Notice {
	var failure *jobform.Failure
	if errors.As(err, &failure) {
		return failure.Notice
	}
	return jobform.Notice{Kind: jobform.NoticeError, Message: fallback}
}

// syncInputs copies engine state into the text inputs after a load or reset.
func (v *formView) syncInputs() {
	s := v.engine.Snapshot()
	v.address.SetValue(s.AddressText)
	v.start.SetValue(formatTime(s.Start))
	v.end.SetValue(formatTime(s.End))
	v.name.SetValue(s.Name)
	v.description.SetValue(s.Description)
	v.predictions = nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(dateLayout)
}

// parseTime reads a typed timestamp. Empty or malformed text yields the zero
// time, which leaves the field unset.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseCoordinates accepts "lat, lng" as a manual location when no
// autocomplete provider is configured.
func parseCoordinates(value string) (places.Place, bool) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return places.Place{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return places.Place{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return places.Place{}, false
	}
	return places.Place{
		FormattedAddress: strings.TrimSpace(value),
		Geometry:         &places.Geometry{Location: &places.LatLng{Lat: lat, Lng: lng}},
	}, true
}

func (v *formView) inputFor(f formField) *textinput.Model {
	switch f {
	case fieldAddress:
		return &v.address
	case fieldStart:
		return &v.start
	case fieldEnd:
		return &v.end
	case fieldName:
		return &v.name
	case fieldDescription:
		return &v.description
	case fieldRoles:
		return &v.roleFilter
	case fieldItems:
		return &v.itemFilter
	}
	return nil
}

func (v *formView) setFocus(f formField) tea.Cmd {
	if in := v.inputFor(v.focus); in != nil {
		in.Blur()
	}
	if v.focus == fieldAddress {
		v.predictions = nil
	}
	v.focus = (f + fieldCount) % fieldCount
	if in := v.inputFor(v.focus); in != nil {
		return in.Focus()
	}
	return nil
}

func (v *formView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		return v.setFocus(v.focus + 1)
	case "shift+tab":
		return v.setFocus(v.focus - 1)
	case "ctrl+s":
		return v.submit()
	case "ctrl+n":
		switch v.focus {
		case fieldRoles:
			v.engine.OpenRoleDialog()
			return v.openDialog()
		case fieldItems:
			v.engine.OpenItemDialog()
			return v.openDialog()
		}
		return nil
	}

	switch v.focus {
	case fieldAddress:
		return v.handleAddressKey(msg)
	case fieldRoles:
		return v.handleRoleKey(msg)
	case fieldItems:
		return v.handleItemKey(msg)
	case fieldSubmit:
		if msg.String() == "enter" {
			return v.submit()
		}
		return nil
	}

	in := v.inputFor(v.focus)
	if msg.String() == "enter" {
		return v.setFocus(v.focus + 1)
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	switch v.focus {
	case fieldStart:
		v.engine.SetStart(parseTime(in.Value()))
	case fieldEnd:
		v.engine.SetEnd(parseTime(in.Value()))
	case fieldName:
		v.engine.SetName(in.Value())
	case fieldDescription:
		v.engine.SetDescription(in.Value())
	}
	return cmd
}

func (v *formView) handleAddressKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up":
		if v.predictionCursor > 0 {
			v.predictionCursor--
		}
		return nil
	case "down":
		if v.predictionCursor < len(v.predictions)-1 {
			v.predictionCursor++
		}
		return nil
	case "enter":
		if len(v.predictions) > 0 {
			return v.resolve(v.predictions[v.predictionCursor])
		}
		if place, ok := parseCoordinates(v.address.Value()); ok {
			v.applyPlace(place)
			return nil
		}
		return v.setFocus(fieldStart)
	}
	before := v.address.Value()
	var cmd tea.Cmd
	v.address, cmd = v.address.Update(msg)
	if after := v.address.Value(); after != before {
		v.engine.SetAddressText(after)
		return tea.Batch(cmd, v.scheduleLookup(after))
	}
	return cmd
}

func (v *formView) scheduleLookup(query string) tea.Cmd {
	v.lookupSeq++
	seq := v.lookupSeq
	return tea.Tick(lookupDelay, func(time.Time) tea.Msg {
		return placeLookupMsg{seq: seq, query: query}
	})
}

func (v *formView) lookup(seq int, query string) tea.Cmd {
	finder := v.app.places
	if finder == nil || !finder.Enabled() || len(strings.TrimSpace(query)) < minLookupChars {
		v.predictions = nil
		return nil
	}
	ctx := v.app.ctx
	return func() tea.Msg {
		predictions, err := finder.Autocomplete(ctx, query)
		return predictionsMsg{seq: seq, predictions: predictions, err: err}
	}
}

func (v *formView) resolve(p places.Prediction) tea.Cmd {
	finder, ctx := v.app.places, v.app.ctx
	v.predictions = nil
	v.address.SetValue(p.Description)
	return func() tea.Msg {
		place, err := finder.Details(ctx, p.PlaceID)
		return placeResolvedMsg{place: place, err: err}
	}
}

func (v *formView) applyPlace(place places.Place) {
	if !v.engine.SelectPlace(place) {
		v.app.logger.Warn().Str("place_id", place.PlaceID).Msg("place has no geometry, ignored")
		return
	}
	v.address.SetValue(place.FormattedAddress)
	v.predictions = nil
	v.app.logInfo("Location set · %s", place.FormattedAddress)
}

func (v *formView) handleRoleKey(msg tea.KeyMsg) tea.Cmd {
	roles := v.engine.FilterRoles(v.roleFilter.Value())
	switch msg.String() {
	case "up":
		if v.roleCursor > 0 {
			v.roleCursor--
		}
		return nil
	case "down":
		if v.roleCursor < len(roles)-1 {
			v.roleCursor++
		}
		return nil
	case "enter", " ":
		if v.roleCursor < len(roles) {
			v.engine.ToggleRole(roles[v.roleCursor].RoleID)
		}
		return nil
	}
	before := v.roleFilter.Value()
	var cmd tea.Cmd
	v.roleFilter, cmd = v.roleFilter.Update(msg)
	if v.roleFilter.Value() != before {
		v.roleCursor = 0
	}
	return cmd
}

func (v *formView) handleItemKey(msg tea.KeyMsg) tea.Cmd {
	items := v.engine.FilterItems(v.itemFilter.Value())
	switch msg.String() {
	case "up":
		if v.itemCursor > 0 {
			v.itemCursor--
		}
		return nil
	case "down":
		if v.itemCursor < len(items)-1 {
			v.itemCursor++
		}
		return nil
	case "enter", " ":
		if v.itemCursor < len(items) {
			v.engine.ToggleItem(items[v.itemCursor].ItemID)
		}
		return nil
	case "right", "+":
		if v.itemCursor < len(items) {
			v.engine.Increment(items[v.itemCursor].ItemID)
		}
		return nil
	case "left", "-":
		if v.itemCursor < len(items) {
			v.engine.Decrement(items[v.itemCursor].ItemID)
		}
		return nil
	}
	before := v.itemFilter.Value()
	var cmd tea.Cmd
	v.itemFilter, cmd = v.itemFilter.Update(msg)
	if v.itemFilter.Value() != before {
		v.itemCursor = 0
	}
	return cmd
}

func (v *formView) submit() tea.Cmd {
	if v.submitting || !v.loaded {
		return nil
	}
	if snap := v.engine.Snapshot(); snap.Mode == jobform.ModeEdit && !snap.Loaded {
		v.app.statusMsg = jobform.MsgJobLoadFailed
		return nil
	}
	if !v.engine.CanSubmit() {
		// Surface the field errors without sending anything.
		v.engine.Validate()
		v.app.statusMsg = jobform.MsgFixErrors
		return nil
	}
	v.submitting = true
	engine, ctx := v.engine, v.app.ctx
	return func() tea.Msg {
		outcome, err := engine.Submit(ctx)
		return formSubmittedMsg{outcome: outcome, err: err}
	}
}

// openDialog loads the open dialog's draft into the shared inputs.
func (v *formView) openDialog() tea.Cmd {
	snap := v.engine.Snapshot()
	draft := snap.ItemDraft
	if snap.Dialog == jobform.DialogRole {
		draft = snap.RoleDraft
	}
	v.dialogName.SetValue(draft.Name)
	v.dialogDesc.SetValue(draft.Description)
	v.dialogFocus = 0
	v.dialogDesc.Blur()
	if in := v.inputFor(v.focus); in != nil {
		in.Blur()
	}
	return v.dialogName.Focus()
}

func (v *formView) closeDialog() tea.Cmd {
	v.dialogName.Blur()
	v.dialogDesc.Blur()
	if in := v.inputFor(v.focus); in != nil {
		return in.Focus()
	}
	return nil
}

func (v *formView) handleDialogKey(msg tea.KeyMsg) tea.Cmd {
	snap := v.engine.Snapshot()
	dialog, draft := snap.Dialog, snap.ItemDraft
	if dialog == jobform.DialogRole {
		draft = snap.RoleDraft
	}
	switch msg.String() {
	case "tab", "shift+tab":
		v.dialogFocus = 1 - v.dialogFocus
		if v.dialogFocus == 0 {
			v.dialogDesc.Blur()
			return v.dialogName.Focus()
		}
		v.dialogName.Blur()
		return v.dialogDesc.Focus()
	case "enter":
		if strings.TrimSpace(draft.Name) == "" {
			v.app.statusMsg = "A name is required"
			return nil
		}
		engine, ctx := v.engine, v.app.ctx
		return tea.Batch(v.closeDialog(), func() tea.Msg {
			var (
				notice jobform.Notice
				err    error
			)
			if dialog == jobform.DialogRole {
				notice, err = engine.CreateRole(ctx)
			} else {
				notice, err = engine.CreateItem(ctx)
			}
			return dialogDoneMsg{notice: notice, err: err}
		})
	}
	var cmd tea.Cmd
	if v.dialogFocus == 0 {
		v.dialogName, cmd = v.dialogName.Update(msg)
	} else {
		v.dialogDesc, cmd = v.dialogDesc.Update(msg)
	}
	if dialog == jobform.DialogRole {
		v.engine.SetRoleDialogFields(v.dialogName.Value(), v.dialogDesc.Value())
	} else {
		v.engine.SetItemDialogFields(v.dialogName.Value(), v.dialogDesc.Value())
	}
	return cmd
}

func (v *formView) consumeEsc() bool {
	if v.engine.Snapshot().Dialog != jobform.DialogNone {
		v.engine.CancelDialog()
		v.closeDialog()
		return true
	}
	if len(v.predictions) > 0 {
		v.predictions = nil
		return true
	}
	return false
}

func (v *formView) hints() []string {
	return []string{
		"tab/shift+tab move",
		"enter pick/toggle",
		"ctrl+n new role/item",
		"←/→ item quantity",
		"ctrl+s save",
	}
}

var (
	focusLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	cursorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dialogStyle     = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
)

func (v *formView) label(f formField, text string) string {
	if v.focus == f {
		return focusLabelStyle.Render("▸ " + text)
	}
	return labelStyle.Render("  " + text)
}

func fieldError(errs jobform.Errors, f jobform.Field) string {
	if msg, ok := errs[f]; ok {
		return "\n" + errorStyle.Render("  "+msg)
	}
	return ""
}

func (v *formView) View() string {
	if !v.loaded {
		return v.app.loading("form")
	}
	s := v.engine.Snapshot()
	title := "New Job"
	if s.Mode == jobform.ModeEdit {
		title = "Edit Job"
	}
	sections := []string{panelTitleStyle.Render(title)}

	location := v.label(fieldAddress, "Location") + "\n" + v.address.View()
	if s.Coordinates != nil {
		location += "\n" + mutedStyle.Render("  "+s.Coordinates.String())
	}
	for i, p := range v.predictions {
		line := "    " + p.Description
		if i == v.predictionCursor {
			line = cursorStyle.Render("  › " + p.Description)
		}
		location += "\n" + line
	}
	location += fieldError(s.Errors, jobform.FieldLocation)
	sections = append(sections, location)

	sections = append(sections,
		v.label(fieldStart, "Start")+"\n"+v.start.View()+fieldError(s.Errors, jobform.FieldDatetime),
		v.label(fieldEnd, "End")+"\n"+v.end.View()+fieldError(s.Errors, jobform.FieldEndDatetime),
		v.label(fieldName, "Name")+"\n"+v.name.View(),
		v.label(fieldDescription, "Description")+"\n"+v.description.View(),
		v.renderRoles(s),
		v.renderItems(s),
		v.renderSubmit(s),
	)
	view := strings.Join(sections, "\n")
	if s.Dialog != jobform.DialogNone {
		view = lipgloss.JoinVertical(lipgloss.Left, view, v.renderDialog(s.Dialog))
	}
	return view
}

func selectedRole(s jobform.State, id string) bool {
	for _, r := range s.SelectedRoles {
		if r.RoleID == id {
			return true
		}
	}
	return false
}

func selectedItem(s jobform.State, id string) bool {
	for _, it := range s.SelectedItems {
		if it.ItemID == id {
			return true
		}
	}
	return false
}

// window returns the slice bounds that keep cursor visible.
func window(cursor, total, size int) (int, int) {
	start := 0
	if cursor >= size {
		start = cursor - size + 1
	}
	return start, min(total, start+size)
}

func (v *formView) renderRoles(s jobform.State) string {
	names := make([]string, 0, len(s.SelectedRoles))
	for _, r := range s.SelectedRoles {
		names = append(names, r.Label())
	}
	lines := []string{
		v.label(fieldRoles, fmt.Sprintf("Roles (%s)", joinOr(names, "none"))),
	}
	if v.focus == fieldRoles {
		lines = append(lines, v.roleFilter.View())
		roles := jobform.FilterRoles(s.Roles, v.roleFilter.Value())
		from, to := window(v.roleCursor, len(roles), pickerRows)
		for i := from; i < to; i++ {
			lines = append(lines, pickerLine(i == v.roleCursor, selectedRole(s, roles[i].RoleID), roles[i].Label(), ""))
		}
	}
	return strings.Join(lines, "\n") + fieldError(s.Errors, jobform.FieldRoles)
}

func (v *formView) renderItems(s jobform.State) string {
	var picked []string
	for _, it := range s.SelectedItems {
		picked = append(picked, fmt.Sprintf("%s ×%d", it.Label(), quantity(s, it.ItemID)))
	}
	lines := []string{v.label(fieldItems, fmt.Sprintf("Items (%s)", joinOr(picked, "none")))}
	if v.focus == fieldItems {
		lines = append(lines, v.itemFilter.View())
		items := jobform.FilterItems(s.Items, v.itemFilter.Value())
		from, to := window(v.itemCursor, len(items), pickerRows)
		for i := from; i < to; i++ {
			suffix := ""
			if selectedItem(s, items[i].ItemID) {
				suffix = fmt.Sprintf("  − %d +", quantity(s, items[i].ItemID))
			}
			lines = append(lines, pickerLine(i == v.itemCursor, selectedItem(s, items[i].ItemID), items[i].Label(), suffix))
		}
	}
	return strings.Join(lines, "\n")
}

func quantity(s jobform.State, itemID string) int {
	if q := s.Quantities[itemID]; q >= 1 {
		return q
	}
	return 1
}

func pickerLine(cursor, checked bool, label, suffix string) string {
	box := "[ ]"
	if checked {
		box = "[x]"
	}
	line := fmt.Sprintf("    %s %s%s", box, label, suffix)
	if cursor {
		return cursorStyle.Render(line)
	}
	return line
}

func (v *formView) renderSubmit(s jobform.State) string {
	text := "Create Job"
	if s.Mode == jobform.ModeEdit {
		text = "Update Job"
	}
	if v.submitting {
		return v.app.spinner.View() + " Saving…"
	}
	button := lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
	ready := s.Coordinates != nil && s.Start != nil && len(s.SelectedRoles) > 0
	switch {
	case !ready:
		button = button.Foreground(lipgloss.Color("#666666")).BorderForeground(lipgloss.Color("#444444"))
	case v.focus == fieldSubmit:
		button = button.Bold(true).Foreground(lipgloss.Color("#FFFFFF")).BorderForeground(lipgloss.Color("#5B8DEF"))
	default:
		button = button.BorderForeground(lipgloss.Color("#888888"))
	}
	return button.Render(text)
}

func (v *formView) renderDialog(d jobform.Dialog) string {
	title := "New Role"
	if d == jobform.DialogItem {
		title = "New Item"
	}
	body := strings.Join([]string{
		panelTitleStyle.Render(title),
		v.dialogName.View(),
		v.dialogDesc.View(),
		mutedStyle.Render("enter create · esc cancel"),
	}, "\n")
	return dialogStyle.Render(body)
}
