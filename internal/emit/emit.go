// Package emit writes lowered modules in a target format.
package emit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/gul-lang/gul-lang/internal/ir"
)

// ErrUnsupported is returned when a module uses a construct the target
// cannot express.
var ErrUnsupported = errors.New("unsupported by emitter")

// Emitter writes a module to w.
type Emitter interface {
	Emit(w io.Writer, m *ir.Module) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(w io.Writer, m *ir.Module) error

func (f EmitterFunc) Emit(w io.Writer, m *ir.Module) error { return f(w, m) }

// Text writes the human-readable IR listing.
var Text = EmitterFunc(func(w io.Writer, m *ir.Module) error {
	_, err := io.WriteString(w, m.String())
	return err
})

// JSON writes the module as indented JSON.
var JSON = EmitterFunc(func(w io.Writer, m *ir.Module) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
})

var (
	mu       sync.RWMutex
	registry = map[string]Emitter{
		"text": Text,
		"json": JSON,
	}
)

// Register makes an emitter available under name, replacing any emitter
// already registered there.
func Register(name string, e Emitter) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = e
}

// Lookup returns the emitter registered under name.
func Lookup(name string) (Emitter, error) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown emitter %q (available: %v)", name, namesLocked())
	}
	return e, nil
}

// Names lists the registered emitters in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
