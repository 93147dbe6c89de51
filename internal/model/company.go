package model

import "time"

// Unknown is the sentinel value the interpreter falls back to when the remote
// text-understanding service cannot resolve a field.
const Unknown = "onbekend"

// ParsedQuery is the structured form of a free-text discovery request.
type ParsedQuery struct {
	City     string `json:"city"`
	Industry string `json:"industry"`
	Area     string `json:"area"`
}

// UnknownQuery returns a ParsedQuery with every field set to the sentinel.
func UnknownQuery() ParsedQuery {
	return ParsedQuery{City: Unknown, Industry: Unknown, Area: Unknown}
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceCandidate is one business returned by the places provider. Rating,
// Phone and Website are nil when the provider had no value; nil and empty
// string are distinct downstream.
type PlaceCandidate struct {
	PlaceID string   `json:"place_id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Rating  *float64 `json:"rating,omitempty"`
	Phone   *string  `json:"phone,omitempty"`
	Website *string  `json:"website,omitempty"`
}

// EnrichedCompany is the pipeline's final output unit: a discovered place
// plus the contact channels gathered for it.
type EnrichedCompany struct {
	PlaceCandidate
	ChannelSet
}

// DiscoveryResult is the outcome of one discovery run.
type DiscoveryResult struct {
	Query     ParsedQuery       `json:"parsed_input"`
	Companies []EnrichedCompany `json:"results"`
}

// StoredCompany is an EnrichedCompany with a stable store-assigned identity.
type StoredCompany struct {
	ID string `json:"id"`
	EnrichedCompany
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactLog records one outbound contact attempt for a stored company.
type ContactLog struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Ptr returns a pointer to v. Convenience for optional fields.
func Ptr[T any](v T) *T { return &v }
