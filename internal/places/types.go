package places

import (
	"strings"

	"github.com/kingrea/fieldops/internal/domain"
)

// Component type tags read when decomposing a selected place.
const (
	TagStreetNumber = "street_number"
	TagRoute        = "route"
	TagLocality     = "locality"
	TagPostalCode   = "postal_code"
	TagCountry      = "country"
)

// AutocompleteResponse is the Places Autocomplete API response.
type AutocompleteResponse struct {
	Predictions  []Prediction `json:"predictions"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// Prediction is one autocomplete suggestion.
type Prediction struct {
	Description string   `json:"description"`
	PlaceID     string   `json:"place_id"`
	Types       []string `json:"types,omitempty"`
}

// DetailsResponse is the Place Details API response.
type DetailsResponse struct {
	Result       Place  `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Place is the structured result handed to the job form when the user picks
// a suggestion.
type Place struct {
	PlaceID           string             `json:"place_id,omitempty"`
	FormattedAddress  string             `json:"formatted_address,omitempty"`
	Geometry          *Geometry          `json:"geometry,omitempty"`
	AddressComponents []AddressComponent `json:"address_components,omitempty"`
}

// Geometry holds the place location.
type Geometry struct {
	Location *LatLng `json:"location,omitempty"`
}

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AddressComponent is one tagged piece of a postal address.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// HasType reports whether the component carries tag.
func (c AddressComponent) HasType(tag string) bool {
	for _, t := range c.Types {
		if t == tag {
			return true
		}
	}
	return false
}

// Location returns the place coordinates. ok is false when the place has no
// geometry, which happens when the user submits free text without picking a
// suggestion.
func (p Place) Location() (domain.Coordinates, bool) {
	if p.Geometry == nil || p.Geometry.Location == nil {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: p.Geometry.Location.Lat, Lng: p.Geometry.Location.Lng}, true
}

// Component returns the long name of the last component tagged with tag.
func (p Place) Component(tag string) string {
	value := ""
	for _, c := range p.AddressComponents {
		if c.HasType(tag) {
			value = c.LongName
		}
	}
	return strings.TrimSpace(value)
}

// AddressDetail decomposes the components into a postal breakdown.
func (p Place) AddressDetail() domain.AddressDetail {
	return domain.AddressDetail{
		Street:      p.Component(TagRoute),
		HouseNumber: p.Component(TagStreetNumber),
		City:        p.Component(TagLocality),
		PostalCode:  p.Component(TagPostalCode),
		Country:     p.Component(TagCountry),
	}
}
