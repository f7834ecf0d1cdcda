package wind

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"windglobe/core"
)

// gridFile is the on-disk layout written by the cubed-sphere remapper:
//
//	{"meta": {"grid": {"lat": [...], "lon": [...]}, "time": ..., "level": ...},
//	 "u": [[...]], "v": [[...]]}
//
// Component entries may be null.
type gridFile struct {
	Meta struct {
		Grid struct {
			Lat []float64 `json:"lat"`
			Lon []float64 `json:"lon"`
		} `json:"grid"`
		Time  json.RawMessage `json:"time,omitempty"`
		Level json.RawMessage `json:"level,omitempty"`
	} `json:"meta"`
	U [][]*float64 `json:"u"`
	V [][]*float64 `json:"v"`
}

// DecodeGrid reads a grid in the JSON layout above. Null entries and the bare
// NaN / Infinity tokens some writers emit become missing samples.
func DecodeGrid(r io.Reader) (*Grid, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}

	var f gridFile
	if err := json.Unmarshal(sanitizeNonFinite(raw), &f); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}

	return NewGrid(f.Meta.Grid.Lat, f.Meta.Grid.Lon, fromNullable(f.U), fromNullable(f.V), Meta{
		Time:  f.Meta.Time,
		Level: f.Meta.Level,
	})
}

// LoadGrid decodes the grid file at path.
func LoadGrid(path string) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	g, err := DecodeGrid(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// MarshalJSON writes the grid in the remapper layout with missing samples as null.
func (g *Grid) MarshalJSON() ([]byte, error) {
	var f gridFile
	f.Meta.Grid.Lat = g.Lats
	f.Meta.Grid.Lon = g.Lons
	f.Meta.Time = g.Meta.Time
	f.Meta.Level = g.Meta.Level
	f.U = toNullable(g.U)
	f.V = toNullable(g.V)
	return json.Marshal(f)
}

// SaveGrid writes the grid to path.
func SaveGrid(path string, g *Grid) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fromNullable(rows [][]*float64) [][]float64 {
	out := make([][]float64, len(rows))
	for j, row := range rows {
		out[j] = make([]float64, len(row))
		for i, p := range row {
			if p == nil {
				out[j][i] = math.NaN()
			} else {
				out[j][i] = *p
			}
		}
	}
	return out
}

func toNullable(rows [][]float64) [][]*float64 {
	out := make([][]*float64, len(rows))
	for j, row := range rows {
		out[j] = make([]*float64, len(row))
		for i := range row {
			if core.IsFinite(row[i]) {
				out[j][i] = &row[i]
			}
		}
	}
	return out
}

var nonFiniteTokens = [][]byte{
	[]byte("-Infinity"),
	[]byte("Infinity"),
	[]byte("NaN"),
}

// sanitizeNonFinite rewrites NaN, Infinity and -Infinity outside of strings
// to null. Outside strings no other JSON token starts with N, I or -I.
func sanitizeNonFinite(data []byte) []byte {
	if !bytes.Contains(data, []byte("NaN")) && !bytes.Contains(data, []byte("Infinity")) {
		return data
	}

	out := make([]byte, 0, len(data)+len(data)/8)
	inString, escaped := false, false
	for pos := 0; pos < len(data); {
		c := data[pos]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			pos++
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			pos++
			continue
		}

		replaced := false
		for _, tok := range nonFiniteTokens {
			if bytes.HasPrefix(data[pos:], tok) {
				out = append(out, "null"...)
				pos += len(tok)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c)
			pos++
		}
	}
	return out
}
