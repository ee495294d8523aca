package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the pair to four decimals, as shown under the location field.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// AddressDetail is the postal breakdown of a job location.
type AddressDetail struct {
	Street      string
	HouseNumber string
	City        string
	PostalCode  string
	Country     string
}

// IsZero reports whether no component is set.
func (a AddressDetail) IsZero() bool {
	return a == AddressDetail{}
}

// JobItemLink associates a job with an item and the quantity it needs.
type JobItemLink struct {
	ItemID           string `json:"item_id"`
	RequiredQuantity int    `json:"required_quantity"`
	Item             Item   `json:"item"`
}

// Quantity returns the required quantity, treating missing values as 1.
func (l JobItemLink) Quantity() int {
	if l.RequiredQuantity < 1 {
		return 1
	}
	return l.RequiredQuantity
}

// Job is a scheduled work order at a location.
type Job struct {
	JobID          string        `json:"job_id"`
	JobName        string        `json:"job_name,omitempty"`
	JobDescription string        `json:"job_description,omitempty"`
	Longitude      float64       `json:"longitude"`
	Latitude       float64       `json:"latitude"`
	Country        string        `json:"country,omitempty"`
	City           string        `json:"city,omitempty"`
	HouseNumber    string        `json:"house_number,omitempty"`
	Street         string        `json:"street,omitempty"`
	PostalCode     string        `json:"postal_code,omitempty"`
	StartDatetime  *Timestamp    `json:"start_datetime,omitempty"`
	EndDatetime    *Timestamp    `json:"end_datetime,omitempty"`
	Workers        []Worker      `json:"workers"`
	ItemLinks      []JobItemLink `json:"item_links"`
	Roles          []Role        `json:"roles"`
}

// DisplayName returns the job name or a placeholder.
func (j Job) DisplayName() string {
	if name := strings.TrimSpace(j.JobName); name != "" {
		return name
	}
	return "Unnamed Job"
}

// Coordinates returns the job's point.
func (j Job) Coordinates() Coordinates {
	return Coordinates{Lat: j.Latitude, Lng: j.Longitude}
}

// HasLocation reports whether both coordinates are non-zero. Jobs without a
// location get no map pin.
func (j Job) HasLocation() bool {
	return j.Latitude != 0 && j.Longitude != 0
}

// AddressLine concatenates street, house number and city the way the edit
// form pre-fills its search field.
func (j Job) AddressLine() string {
	return fmt.Sprintf("%s %s, %s", j.Street, j.HouseNumber, j.City)
}

// AddressDetail returns the postal breakdown.
func (j Job) AddressDetail() AddressDetail {
	return AddressDetail{
		Street:      j.Street,
		HouseNumber: j.HouseNumber,
		City:        j.City,
		PostalCode:  j.PostalCode,
		Country:     j.Country,
	}
}

// Start returns the start time when present.
func (j Job) Start() (time.Time, bool) {
	return timeOf(j.StartDatetime)
}

// End returns the end time when present.
func (j Job) End() (time.Time, bool) {
	return timeOf(j.EndDatetime)
}

// IsAssigned reports whether at least one worker is on the job.
func (j Job) IsAssigned() bool {
	return len(j.Workers) > 0
}

// WorkerNames lists assigned worker display names.
func (j Job) WorkerNames() []string {
	names := make([]string, 0, len(j.Workers))
	for _, w := range j.Workers {
		names = append(names, w.DisplayName())
	}
	return names
}

// RoleNames lists required role names.
func (j Job) RoleNames() []string {
	names := make([]string, 0, len(j.Roles))
	for _, r := range j.Roles {
		names = append(names, r.Label())
	}
	return names
}

// JobItemRequest is one item line in a create/update payload.
type JobItemRequest struct {
	ItemID           string `json:"item_id" validate:"required"`
	RequiredQuantity int    `json:"required_quantity" validate:"min=1"`
}

// JobCreate is the payload for POST /jobs and PUT /jobs/{id}. Jobs are always
// written wholesale.
type JobCreate struct {
	JobName        string           `json:"job_name,omitempty"`
	JobDescription string           `json:"job_description,omitempty"`
	Longitude      float64          `json:"longitude" validate:"min=-180,max=180"`
	Latitude       float64          `json:"latitude" validate:"min=-90,max=90"`
	Country        string           `json:"country,omitempty"`
	City           string           `json:"city,omitempty"`
	HouseNumber    string           `json:"house_number,omitempty"`
	Street         string           `json:"street,omitempty"`
	PostalCode     string           `json:"postal_code,omitempty"`
	StartDatetime  *Timestamp       `json:"start_datetime,omitempty"`
	EndDatetime    *Timestamp       `json:"end_datetime,omitempty"`
	WorkerIDs      []string         `json:"worker_ids" validate:"dive,required"`
	Items          []JobItemRequest `json:"items" validate:"dive"`
	RoleIDs        []string         `json:"role_ids" validate:"dive,required"`
}

// SetAddress copies an address breakdown into the payload.
func (p *JobCreate) SetAddress(a AddressDetail) {
	p.Street = a.Street
	p.HouseNumber = a.HouseNumber
	p.City = a.City
	p.PostalCode = a.PostalCode
	p.Country = a.Country
}

// Normalize replaces nil slices with empty ones so they encode as [].
func (p *JobCreate) Normalize() {
	if p.WorkerIDs == nil {
		p.WorkerIDs = []string{}
	}
	if p.Items == nil {
		p.Items = []JobItemRequest{}
	}
	if p.RoleIDs == nil {
		p.RoleIDs = []string{}
	}
}

// CheckShape runs the struct-tag checks only: coordinate ranges, item
// quantities and non-empty ids.
func (p JobCreate) CheckShape() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("domain: invalid job payload: %w", err)
	}
	return nil
}

// Validate checks the payload shape and that the end does not precede the
// start. The backend runs it on every job write.
func (p JobCreate) Validate() error {
	if err := p.CheckShape(); err != nil {
		return err
	}
	if start, ok := timeOf(p.StartDatetime); ok {
		if end, ok := timeOf(p.EndDatetime); ok && end.Before(start) {
			return fmt.Errorf("domain: invalid job payload: end_datetime precedes start_datetime")
		}
	}
	return nil
}

// RoleCreate is the payload for POST /roles.
type RoleCreate struct {
	RoleName        string `json:"role_name" validate:"required"`
	RoleDescription string `json:"role_description,omitempty"`
}

// Validate checks the payload shape.
func (p RoleCreate) Validate() error {
	if strings.TrimSpace(p.RoleName) == "" {
		return fmt.Errorf("domain: invalid role payload: role_name is required")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("domain: invalid role payload: %w", err)
	}
	return nil
}

// ItemCreate is the payload for POST /items.
type ItemCreate struct {
	ItemName        string `json:"item_name" validate:"required"`
	ItemDescription string `json:"item_description,omitempty"`
}

// Validate checks the payload shape.
func (p ItemCreate) Validate() error {
	if strings.TrimSpace(p.ItemName) == "" {
		return fmt.Errorf("domain: invalid item payload: item_name is required")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("domain: invalid item payload: %w", err)
	}
	return nil
}
