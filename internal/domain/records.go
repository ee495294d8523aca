// Package domain holds the record shapes exchanged with the logistics API.
package domain

import (
	"strings"
)

// Branch is an organisational location a worker belongs to.
type Branch struct {
	BranchID   string   `json:"branch_id"`
	BranchName string   `json:"branch_name,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// Role is a labelled skill required by a job or held by a worker.
type Role struct {
	RoleID          string `json:"role_id"`
	RoleName        string `json:"role_name"`
	RoleDescription string `json:"role_description,omitempty"`
}

// Label is the name shown in pickers.
func (r Role) Label() string {
	if name := strings.TrimSpace(r.RoleName); name != "" {
		return name
	}
	return "Unknown Role"
}

// Item is a piece of equipment that jobs can require.
type Item struct {
	ItemID          string `json:"item_id"`
	ItemName        string `json:"item_name"`
	ItemDescription string `json:"item_description,omitempty"`
	BranchID        string `json:"fk_branch_id,omitempty"`
	TotalStock      *int   `json:"total_stock,omitempty"`
}

// Label is the name shown in pickers.
func (i Item) Label() string {
	if name := strings.TrimSpace(i.ItemName); name != "" {
		return name
	}
	return "Unknown Item"
}

// Worker is a person who can be assigned to jobs.
type Worker struct {
	WorkerID    string  `json:"worker_id"`
	FirstName   string  `json:"worker_first_name,omitempty"`
	LastName    string  `json:"worker_last_name,omitempty"`
	PhoneNumber string  `json:"worker_phone_number,omitempty"`
	BranchID    string  `json:"fk_branch_id,omitempty"`
	Branch      *Branch `json:"branch,omitempty"`
	Roles       []Role  `json:"roles"`
}

// DisplayName joins first and last name, falling back to N/A.
func (w Worker) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(w.FirstName) + " " + strings.TrimSpace(w.LastName))
	if name == "" {
		return "N/A"
	}
	return name
}

// Phone returns the phone number or N/A.
func (w Worker) Phone() string {
	if phone := strings.TrimSpace(w.PhoneNumber); phone != "" {
		return phone
	}
	return "N/A"
}

// BranchName returns the branch label or "No branch".
func (w Worker) BranchName() string {
	if w.Branch != nil {
		if name := strings.TrimSpace(w.Branch.BranchName); name != "" {
			return name
		}
	}
	return "No branch"
}

// RoleNames lists the worker's role names in order.
func (w Worker) RoleNames() []string {
	names := make([]string, 0, len(w.Roles))
	for _, role := range w.Roles {
		names = append(names, role.Label())
	}
	return names
}
