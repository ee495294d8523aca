package jobform

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/kingrea/fieldops/internal/domain"
)

type roleSource []domain.Role

func (s roleSource) String(i int) string { return s[i].Label() }
func (s roleSource) Len() int            { return len(s) }

type itemSource []domain.Item

func (s itemSource) String(i int) string { return s[i].Label() }
func (s itemSource) Len() int            { return len(s) }

// FilterRoles ranks the reference roles against query for the picker. An
// empty query returns every role in list order.
func (e *Engine) FilterRoles(query string) []domain.Role {
	e.mu.Lock()
	roles := append([]domain.Role(nil), e.state.Roles...)
	e.mu.Unlock()
	return FilterRoles(roles, query)
}

// FilterItems ranks the reference items against query for the picker.
func (e *Engine) FilterItems(query string) []domain.Item {
	e.mu.Lock()
	items := append([]domain.Item(nil), e.state.Items...)
	e.mu.Unlock()
	return FilterItems(items, query)
}

// FilterRoles ranks roles by fuzzy match on their label.
func FilterRoles(roles []domain.Role, query string) []domain.Role {
	query = strings.TrimSpace(query)
	if query == "" {
		return roles
	}
	matches := fuzzy.FindFrom(query, roleSource(roles))
	out := make([]domain.Role, 0, len(matches))
	for _, m := range matches {
		out = append(out, roles[m.Index])
	}
	return out
}

// FilterItems ranks items by fuzzy match on their label.
func FilterItems(items []domain.Item, query string) []domain.Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	matches := fuzzy.FindFrom(query, itemSource(items))
	out := make([]domain.Item, 0, len(matches))
	for _, m := range matches {
		out = append(out, items[m.Index])
	}
	return out
}
