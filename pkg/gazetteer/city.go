// Package gazetteer holds the static city dataset used for autocomplete and
// the ranking function that turns a partial city name into suggestions.
package gazetteer

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// ErrEmptyDataset is returned when a city list decodes to zero records.
var ErrEmptyDataset = errors.New("city dataset is empty")

// Coord is a WGS84 coordinate.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// City is one gazetteer record, in the weather provider's city list format.
// Records are immutable once loaded.
type City struct {
	Name    string `json:"name"`
	State   string `json:"state,omitempty"`
	Country string `json:"country"` // ISO-3166 alpha-2
	Coord   Coord  `json:"coord"`
	ID      int    `json:"id"`
}

// Geohash returns the full precision geohash of the city's coordinate.
func (c City) Geohash() string {
	return geohash.Encode(c.Coord.Lat, c.Coord.Lon)
}

// Decode reads a JSON array of cities. Gzip input is detected by its magic
// bytes, so both city.list.json and city.list.json.gz can be fed directly.
func Decode(r io.Reader) ([]City, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip city list: %w", err)
		}
		defer func() { _ = gz.Close() }()
		return decodeJSON(gz)
	}
	return decodeJSON(br)
}

func decodeJSON(r io.Reader) ([]City, error) {
	var cities []City
	if err := json.NewDecoder(r).Decode(&cities); err != nil {
		return nil, fmt.Errorf("decoding city list: %w", err)
	}

	// Records without a name can never match a query; drop them at load time.
	kept := cities[:0]
	for i := range cities {
		cities[i].Name = strings.TrimSpace(cities[i].Name)
		if cities[i].Name == "" {
			continue
		}
		kept = append(kept, cities[i])
	}

	if len(kept) == 0 {
		return nil, ErrEmptyDataset
	}
	return kept, nil
}
