package geocoding

import (
	"slices"

	"location-api/internal/models"

	"googlemaps.github.io/maps"
)

// Address component tags, in the order they are tried for the city.
var cityTags = []string{"locality", "administrative_area_level_3", "administrative_area_level_2"}

const (
	stateTag   = "administrative_area_level_1"
	countryTag = "country"
)

// extractAddress picks city, state and country from address components.
// The city is the first locality, falling back to the nearest administrative
// area below the state when there is no locality.
func extractAddress(components []maps.AddressComponent) models.Address {
	var addr models.Address
	for _, tag := range cityTags {
		if name := firstTagged(components, tag); name != "" {
			addr.City = name
			break
		}
	}
	addr.State = firstTagged(components, stateTag)
	addr.Country = firstTagged(components, countryTag)
	return addr
}

func firstTagged(components []maps.AddressComponent, tag string) string {
	for _, c := range components {
		if slices.Contains(c.Types, tag) {
			return c.LongName
		}
	}
	return ""
}
