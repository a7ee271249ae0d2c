package models

import "strings"

// DefaultCountry is used when a domestic postal lookup does not name a country.
const DefaultCountry = "India"

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Valid reports whether the pair lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Address is the place description produced by reverse geocoding.
type Address struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// IsZero reports whether no component was resolved.
func (a Address) IsZero() bool {
	return a.City == "" && a.State == "" && a.Country == ""
}

// Location is the canonical resolved location of the user's area of interest.
// Coordinates are present only when derived from device geolocation or a resolved place.
type Location struct {
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	City             string       `json:"city"`
	State            string       `json:"state"`
	Country          string       `json:"country"`
	FormattedAddress string       `json:"formattedAddress,omitempty"`
}

// IsEmpty reports whether the record carries neither a city nor a state.
// Such a record is equivalent to no location at all and is never persisted.
func (l *Location) IsEmpty() bool {
	if l == nil {
		return true
	}
	return strings.TrimSpace(l.City) == "" && strings.TrimSpace(l.State) == ""
}

// Clone returns a deep copy.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	if l.Coordinates != nil {
		coords := *l.Coordinates
		c.Coordinates = &coords
	}
	return &c
}

// Label is the short human-readable form shown on the selector button.
func (l *Location) Label() string {
	if l.IsEmpty() {
		return ""
	}
	switch {
	case l.City != "" && l.State != "":
		return l.City + ", " + l.State
	case l.City != "":
		return l.City
	default:
		return l.State
	}
}

// Suggestion is one place-autocomplete prediction.
type Suggestion struct {
	Description string `json:"description"`
	PlaceID     string `json:"place_id"`
	MainText    string `json:"main_text,omitempty"`
	Secondary   string `json:"secondary_text,omitempty"`
}

// Place is a resolved place-details result.
type Place struct {
	PlaceID          string      `json:"place_id"`
	Name             string      `json:"name"`
	FormattedAddress string      `json:"formatted_address"`
	Coordinates      Coordinates `json:"coordinates"`
	Address
}

// Location converts the place into a location record.
func (p *Place) Location() *Location {
	coords := p.Coordinates
	city := p.City
	if city == "" {
		city = p.Name
	}
	return &Location{
		Coordinates:      &coords,
		City:             city,
		State:            p.State,
		Country:          p.Country,
		FormattedAddress: p.FormattedAddress,
	}
}

// PincodeEntry is one row of the offline postal directory.
type PincodeEntry struct {
	ID        int     `json:"id"`
	Pincode   string  `json:"pincode"`
	Office    string  `json:"office"`
	District  string  `json:"district"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location converts the entry into a location record.
func (e *PincodeEntry) Location() *Location {
	return &Location{
		Coordinates:      &Coordinates{Latitude: e.Latitude, Longitude: e.Longitude},
		City:             e.District,
		State:            e.State,
		Country:          DefaultCountry,
		FormattedAddress: strings.Join(nonEmpty(e.Office, e.District, e.State+" "+e.Pincode, DefaultCountry), ", "),
	}
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
