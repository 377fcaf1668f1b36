package confloader

import (
	"errors"
	"strings"
)

// errNoBytes is returned by mapProvider.ReadBytes; koanf uses Read.
var errNoBytes = errors.New("confloader: map provider has no byte form")

// mapProvider is a koanf provider over an in-memory map. Dotted keys are
// expanded into nested maps so they merge with file and env values.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errNoBytes
}

func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for key, value := range m {
		parts := strings.Split(key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := node[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[p] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = value
	}
	return out, nil
}
