// Package codec selects how artifact payloads and matrix files are encoded.
//
// The codec name is recorded in every persisted artifact header, so a file
// written with one codec is always read back with the same codec.
package codec

import (
	"fmt"
	"sort"
)

// MaxNameLen is the longest codec name that fits into an artifact header.
const MaxNameLen = 16

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

var builtin = map[string]Codec{
	JSON{}.Name():   JSON{},
	GoJSON{}.Name(): GoJSON{},
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	c, ok := builtin[name]
	return c, ok
}

// Names returns the names of all built-in codecs in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

// DecodeMatrix parses a matrix encoded as an array of equally long rows,
// e.g. [[0.1, -0.5], [2.5, -1.2]].
func DecodeMatrix(c Codec, data []byte) ([][]float64, error) {
	if c == nil {
		c = Default
	}

	var rows [][]float64
	if err := c.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("codec %s: decode matrix: %w", c.Name(), err)
	}
	return rows, nil
}
