// Package jobform drives the creation or editing of a single job: location,
// schedule, roles, item quantities, validation and submit, plus the inline
// dialogs that create new roles and items.
package jobform

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/fieldops/internal/domain"
	"github.com/kingrea/fieldops/internal/places"
)

// Store is the slice of the API client the engine depends on.
type Store interface {
	ListRoles(ctx context.Context) ([]domain.Role, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetJob(ctx context.Context, jobID string) (domain.Job, error)
	CreateJob(ctx context.Context, payload domain.JobCreate) (domain.Job, error)
	UpdateJob(ctx context.Context, jobID string, payload domain.JobCreate) (domain.Job, error)
	CreateRole(ctx context.Context, payload domain.RoleCreate) (domain.Role, error)
	CreateItem(ctx context.Context, payload domain.ItemCreate) (domain.Item, error)
}

// Mode distinguishes a new job from an edit of an existing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Dialog identifies the open secondary dialog, if any.
type Dialog int

const (
	DialogNone Dialog = iota
	DialogRole
	DialogItem
)

// Draft holds the text fields of a reference dialog.
type Draft struct {
	Name        string
	Description string
}

// State is everything the form shows. Snapshot returns a deep copy.
type State struct {
	Mode  Mode
	JobID string

	AddressText string
	Coordinates *domain.Coordinates
	Address     domain.AddressDetail

	Start *time.Time
	End   *time.Time

	Name        string
	Description string

	Roles         []domain.Role
	Items         []domain.Item
	SelectedRoles []domain.Role
	SelectedItems []domain.Item
	Quantities    map[string]int

	Errors Errors

	Dialog    Dialog
	RoleDraft Draft
	ItemDraft Draft

	Loaded bool
}

// Engine is safe for use from concurrent commands. Network calls run without
// the lock held; results are applied last-write-wins.
type Engine struct {
	store  Store
	logger arbor.ILogger

	mu    sync.Mutex
	state State
}

// Option configures an Engine.
type Option func(*Engine)

// WithJobID puts the engine in edit mode for the given job.
func WithJobID(jobID string) Option {
	return func(e *Engine) {
		if id := strings.TrimSpace(jobID); id != "" {
			e.state.Mode = ModeEdit
			e.state.JobID = id
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine in create mode unless WithJobID is given.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: arbor.NewNoOpLogger(),
		state:  State{Quantities: map[string]int{}, Errors: Errors{}},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode reports create or edit.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Mode
}

// Load fetches the role and item reference lists and, in edit mode, the job
// being edited. The returned error is a *Failure carrying the notice to show.
func (e *Engine) Load(ctx context.Context) error {
	var roles []domain.Role
	var items []domain.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = e.store.ListRoles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = e.store.ListItems(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		e.logger.Error().Err(err).Msg(MsgLoadFailed)
		return &Failure{Notice: failure(MsgLoadFailed), Err: err}
	}

	e.mu.Lock()
	e.state.Roles = roles
	e.state.Items = items
	jobID := e.state.JobID
	e.mu.Unlock()

	if jobID == "" {
		e.mu.Lock()
		e.state.Loaded = true
		e.mu.Unlock()
		return nil
	}

	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		e.logger.Error().Err(err).Str("job_id", jobID).Msg(MsgJobLoadFailed)
		return &Failure{Notice: failure(MsgJobLoadFailed), Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.backfill(job)
	e.state.Loaded = true
	return nil
}

func (e *Engine) backfill(job domain.Job) {
	s := &e.state
	s.AddressText = job.AddressLine()
	coords := job.Coordinates()
	s.Coordinates = &coords
	s.Address = job.AddressDetail()
	s.Name = job.JobName
	s.Description = job.JobDescription
	s.Start = nil
	if start, ok := job.Start(); ok {
		s.Start = &start
	}
	s.End = nil
	if end, ok := job.End(); ok {
		s.End = &end
	}

	s.SelectedRoles = make([]domain.Role, 0, len(job.Roles))
	for _, r := range job.Roles {
		s.SelectedRoles = append(s.SelectedRoles, resolveRole(s.Roles, r))
	}
	s.SelectedItems = make([]domain.Item, 0, len(job.ItemLinks))
	s.Quantities = make(map[string]int, len(job.ItemLinks))
	for _, link := range job.ItemLinks {
		item := link.Item
		if item.ItemID == "" {
			item.ItemID = link.ItemID
		}
		s.SelectedItems = append(s.SelectedItems, resolveItem(s.Items, item))
		s.Quantities[link.ItemID] = link.Quantity()
	}
	s.Errors = Errors{}
}

func resolveRole(list []domain.Role, r domain.Role) domain.Role {
	for _, candidate := range list {
		if candidate.RoleID == r.RoleID {
			return candidate
		}
	}
	return r
}

func resolveItem(list []domain.Item, it domain.Item) domain.Item {
	for _, candidate := range list {
		if candidate.ItemID == it.ItemID {
			return candidate
		}
	}
	return it
}

// SelectPlace applies an autocomplete selection. It returns false and leaves
// state untouched when the place carries no geometry.
func (e *Engine) SelectPlace(p places.Place) bool {
	coords, ok := p.Location()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Coordinates = &coords
	e.state.AddressText = p.FormattedAddress
	e.state.Address = p.AddressDetail()
	delete(e.state.Errors, FieldLocation)
	return true
}

// SetAddressText records typed search text. Coordinates only change through
// SelectPlace.
func (e *Engine) SetAddressText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.AddressText = text
}

// SetName sets the job name.
func (e *Engine) SetName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Name = name
}

// SetDescription sets the job description.
func (e *Engine) SetDescription(description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Description = description
}

// SetStart sets the start time; the zero time clears it.
func (e *Engine) SetStart(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Start = timePtr(t)
	delete(e.state.Errors, FieldDatetime)
}

// SetEnd sets the end time; the zero time clears it.
func (e *Engine) SetEnd(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.End = timePtr(t)
	delete(e.state.Errors, FieldEndDatetime)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// SetRoles replaces the selected roles with the reference roles matching ids.
func (e *Engine) SetRoles(roleIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	selected := make([]domain.Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		for _, r := range e.state.Roles {
			if r.RoleID == id {
				selected = append(selected, r)
				break
			}
		}
	}
	e.state.SelectedRoles = selected
	delete(e.state.Errors, FieldRoles)
}

// ToggleRole selects or deselects one role.
func (e *Engine) ToggleRole(roleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.state.SelectedRoles {
		if r.RoleID == roleID {
			e.state.SelectedRoles = append(e.state.SelectedRoles[:i:i], e.state.SelectedRoles[i+1:]...)
			delete(e.state.Errors, FieldRoles)
			return
		}
	}
	for _, r := range e.state.Roles {
		if r.RoleID == roleID {
			e.state.SelectedRoles = append(e.state.SelectedRoles, r)
			break
		}
	}
	delete(e.state.Errors, FieldRoles)
}

// SetItems replaces the selected items. Newly selected items get quantity 1
// unless a quantity is already recorded.
func (e *Engine) SetItems(itemIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	selected := make([]domain.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		for _, it := range e.state.Items {
			if it.ItemID == id {
				selected = append(selected, it)
				e.ensureQuantity(id)
				break
			}
		}
	}
	e.state.SelectedItems = selected
}

// ToggleItem selects or deselects one item. A deselected item keeps its
// recorded quantity so re-selecting restores it.
func (e *Engine) ToggleItem(itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, it := range e.state.SelectedItems {
		if it.ItemID == itemID {
			e.state.SelectedItems = append(e.state.SelectedItems[:i:i], e.state.SelectedItems[i+1:]...)
			return
		}
	}
	for _, it := range e.state.Items {
		if it.ItemID == itemID {
			e.state.SelectedItems = append(e.state.SelectedItems, it)
			e.ensureQuantity(itemID)
			return
		}
	}
}

func (e *Engine) ensureQuantity(itemID string) {
	if e.state.Quantities[itemID] < 1 {
		e.state.Quantities[itemID] = 1
	}
}

// Increment raises an item's quantity by one.
func (e *Engine) Increment(itemID string) int {
	return e.AdjustQuantity(itemID, 1)
}

// Decrement lowers an item's quantity by one, never below 1.
func (e *Engine) Decrement(itemID string) int {
	return e.AdjustQuantity(itemID, -1)
}

// AdjustQuantity adds delta to an item's quantity and clamps the result to a
// minimum of 1. A missing entry counts as 1. Increments saturate at MaxInt.
func (e *Engine) AdjustQuantity(itemID string, delta int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.state.Quantities[itemID]
	if current < 1 {
		current = 1
	}
	next := math.MaxInt
	if delta <= 0 || current <= math.MaxInt-delta {
		next = max(1, current+delta)
	}
	e.state.Quantities[itemID] = next
	return next
}

// Quantity returns the recorded quantity for an item, defaulting to 1.
func (e *Engine) Quantity(itemID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if q := e.state.Quantities[itemID]; q >= 1 {
		return q
	}
	return 1
}

// Validate runs the validation gate, stores the result and returns a copy.
func (e *Engine) Validate() Errors {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked().clone()
}

func (e *Engine) validateLocked() Errors {
	errs := Errors{}
	s := e.state
	if s.Coordinates == nil {
		errs.add(FieldLocation)
	}
	if s.Start == nil || s.Start.IsZero() {
		errs.add(FieldDatetime)
	} else if s.End != nil && s.End.Before(*s.Start) {
		errs.add(FieldEndDatetime)
	}
	if len(s.SelectedRoles) == 0 {
		errs.add(FieldRoles)
	}
	e.state.Errors = errs
	return errs
}

// CanSubmit mirrors the submit button state: a location, a start time and at
// least one role. End ordering is only checked when Submit runs.
func (e *Engine) CanSubmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editableLocked() {
		return false
	}
	return e.state.Coordinates != nil && e.state.Start != nil && len(e.state.SelectedRoles) > 0
}

// editableLocked is false while an edit has no job loaded; submitting then
// would replace the stored job with whatever was typed.
func (e *Engine) editableLocked() bool {
	return e.state.Mode != ModeEdit || e.state.Loaded
}

// Payload builds the create/update request from the current state.
func (e *Engine) Payload() domain.JobCreate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payloadLocked()
}

func (e *Engine) payloadLocked() domain.JobCreate {
	s := e.state
	payload := domain.JobCreate{
		JobName:        strings.TrimSpace(s.Name),
		JobDescription: strings.TrimSpace(s.Description),
		WorkerIDs:      []string{},
		RoleIDs:        make([]string, 0, len(s.SelectedRoles)),
		Items:          make([]domain.JobItemRequest, 0, len(s.SelectedItems)),
	}
	if s.Coordinates != nil {
		payload.Latitude = s.Coordinates.Lat
		payload.Longitude = s.Coordinates.Lng
	}
	payload.SetAddress(s.Address)
	if s.Start != nil {
		payload.StartDatetime = domain.NewTimestamp(*s.Start)
	}
	if s.End != nil {
		payload.EndDatetime = domain.NewTimestamp(*s.End)
	}
	for _, r := range s.SelectedRoles {
		payload.RoleIDs = append(payload.RoleIDs, r.RoleID)
	}
	for _, it := range s.SelectedItems {
		qty := s.Quantities[it.ItemID]
		if qty < 1 {
			qty = 1
		}
		payload.Items = append(payload.Items, domain.JobItemRequest{ItemID: it.ItemID, RequiredQuantity: qty})
	}
	return payload
}

// Submit validates, then creates or updates the job. A create success resets
// the form. On failure state is left untouched so the user can retry.
func (e *Engine) Submit(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	if !e.editableLocked() {
		e.mu.Unlock()
		notice := failure(MsgJobLoadFailed)
		return Outcome{Notice: notice}, &Failure{Notice: notice}
	}
	if errs := e.validateLocked(); !errs.Empty() {
		e.mu.Unlock()
		notice := failure(MsgFixErrors)
		return Outcome{Notice: notice}, &Failure{Notice: notice}
	}
	payload := e.payloadLocked()
	mode, jobID := e.state.Mode, e.state.JobID
	e.mu.Unlock()

	var (
		job domain.Job
		err error
	)
	if mode == ModeEdit {
		job, err = e.store.UpdateJob(ctx, jobID, payload)
	} else {
		job, err = e.store.CreateJob(ctx, payload)
	}
	if err != nil {
		e.logger.Error().Err(err).Str("job_id", jobID).Msg(MsgSaveFailed)
		notice := failure(MsgSaveFailed)
		return Outcome{Notice: notice}, &Failure{Notice: notice, Err: err}
	}

	if mode == ModeEdit {
		e.logger.Info().Str("job_id", job.JobID).Msg("job updated")
		return Outcome{Notice: success(MsgJobUpdated), Job: job, NavigateAfter: NavigateDelay}, nil
	}

	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
	e.logger.Info().Str("job_id", job.JobID).Msg("job created")
	return Outcome{Notice: success(MsgJobCreated), Job: job, NavigateAfter: NavigateDelay}, nil
}

// resetLocked clears every input and keeps the loaded reference lists.
func (e *Engine) resetLocked() {
	e.state = State{
		Mode:       e.state.Mode,
		JobID:      e.state.JobID,
		Roles:      e.state.Roles,
		Items:      e.state.Items,
		Loaded:     e.state.Loaded,
		Quantities: map[string]int{},
		Errors:     Errors{},
	}
}

// Snapshot returns a deep copy of the state for rendering.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	if s.Coordinates != nil {
		c := *s.Coordinates
		s.Coordinates = &c
	}
	if s.Start != nil {
		t := *s.Start
		s.Start = &t
	}
	if s.End != nil {
		t := *s.End
		s.End = &t
	}
	s.Roles = append([]domain.Role(nil), s.Roles...)
	s.Items = append([]domain.Item(nil), s.Items...)
	s.SelectedRoles = append([]domain.Role(nil), s.SelectedRoles...)
	s.SelectedItems = append([]domain.Item(nil), s.SelectedItems...)
	s.Quantities = make(map[string]int, len(e.state.Quantities))
	for k, v := range e.state.Quantities {
		s.Quantities[k] = v
	}
	s.Errors = e.state.Errors.clone()
	return s
}
