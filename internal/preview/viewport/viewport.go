// Package viewport holds the fixed table of device sizes the preview
// sandbox can emulate.
package viewport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownViewport is returned when a profile name is not registered
var ErrUnknownViewport = errors.New("unknown viewport")

// Profile is a named width/height pair
type Profile struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

const DefaultName = "Desktop"

var profiles = [...]Profile{
	{Name: "Mobile", Width: 375, Height: 667},
	{Name: "Tablet", Width: 768, Height: 1024},
	{Name: "Desktop", Width: 1200, Height: 800},
	{Name: "Large", Width: 1920, Height: 1080},
}

// All returns every registered profile in display order
func All() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles[:])
	return out
}

// Lookup finds a profile by name, ignoring case
func Lookup(name string) (Profile, error) {
	for _, p := range profiles {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownViewport, name)
}

// Default returns the Desktop profile
func Default() Profile {
	p, _ := Lookup(DefaultName)
	return p
}

// Names lists the registered profile names
func Names() []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}
