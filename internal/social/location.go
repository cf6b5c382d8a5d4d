package social

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Location is where a post was written. It decodes from either a bare name
// ("Архангай") or an object {"name", "lat", "lng"} whose coordinates may be
// numbers or numeric strings. Coordinates that are not finite numbers are
// dropped rather than rejected.
type Location struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("location: %w", err)
		}
		*l = Location{Name: strings.TrimSpace(name)}
		return nil
	}

	var raw struct {
		Name string          `json:"name"`
		Lat  json.RawMessage `json:"lat"`
		Lng  json.RawMessage `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("location must be a name or {name, lat, lng}: %w", err)
	}
	*l = Location{
		Name: strings.TrimSpace(raw.Name),
		Lat:  parseCoordinate(raw.Lat),
		Lng:  parseCoordinate(raw.Lng),
	}
	return nil
}

// parseCoordinate accepts a JSON number or a JSON string holding one.
func parseCoordinate(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// IsZero reports a location with neither a name nor coordinates.
func (l *Location) IsZero() bool {
	return l == nil || (l.Name == "" && l.Lat == nil && l.Lng == nil)
}
