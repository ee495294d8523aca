package jobform

import (
	"context"

	"github.com/kingrea/fieldops/internal/domain"
)

// OpenRoleDialog shows the new-role dialog.
func (e *Engine) OpenRoleDialog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Dialog = DialogRole
}

// OpenItemDialog shows the new-item dialog.
func (e *Engine) OpenItemDialog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Dialog = DialogItem
}

// SetRoleDialogFields updates the new-role text fields.
func (e *Engine) SetRoleDialogFields(name, description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.RoleDraft = Draft{Name: name, Description: description}
}

// SetItemDialogFields updates the new-item text fields.
func (e *Engine) SetItemDialogFields(name, description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.ItemDraft = Draft{Name: name, Description: description}
}

// CancelDialog closes the open dialog. Typed text is kept.
func (e *Engine) CancelDialog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Dialog = DialogNone
}

// CreateRole posts the role draft. On success the role joins the reference
// list and the selection, and the dialog closes with its fields cleared. On
// failure the dialog stays open.
func (e *Engine) CreateRole(ctx context.Context) (Notice, error) {
	e.mu.Lock()
	draft := e.state.RoleDraft
	e.mu.Unlock()

	role, err := e.store.CreateRole(ctx, domain.RoleCreate{RoleName: draft.Name, RoleDescription: draft.Description})
	if err != nil {
		e.logger.Error().Err(err).Str("role_name", draft.Name).Msg(MsgRoleCreateFailed)
		notice := failure(MsgRoleCreateFailed)
		return notice, &Failure{Notice: notice, Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Roles = append(e.state.Roles, role)
	e.state.SelectedRoles = append(e.state.SelectedRoles, role)
	delete(e.state.Errors, FieldRoles)
	e.state.Dialog = DialogNone
	e.state.RoleDraft = Draft{}
	e.logger.Info().Str("role_id", role.RoleID).Msg("role created")
	return success(MsgRoleCreated), nil
}

// CreateItem posts the item draft. On success the item joins the reference
// list and the selection with quantity 1; other quantities are unchanged.
func (e *Engine) CreateItem(ctx context.Context) (Notice, error) {
	e.mu.Lock()
	draft := e.state.ItemDraft
	e.mu.Unlock()

	item, err := e.store.CreateItem(ctx, domain.ItemCreate{ItemName: draft.Name, ItemDescription: draft.Description})
	if err != nil {
		e.logger.Error().Err(err).Str("item_name", draft.Name).Msg(MsgItemCreateFailed)
		notice := failure(MsgItemCreateFailed)
		return notice, &Failure{Notice: notice, Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Items = append(e.state.Items, item)
	e.state.SelectedItems = append(e.state.SelectedItems, item)
	e.state.Quantities[item.ItemID] = 1
	e.state.Dialog = DialogNone
	e.state.ItemDraft = Draft{}
	e.logger.Info().Str("item_id", item.ItemID).Msg("item created")
	return success(MsgItemCreated), nil
}
