// Package profile holds named default-column lists ("profiles") used by the
// quick-select actions. A Set always contains the built-in "default" profile,
// built from configuration; a YAML file may add more or override it.
//
// File format:
//
//	profiles:
//	  - name: sales
//	    description: Contact fields for the sales team
//	    columns: [First Name, Last Name, Email Address]
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is the name of the built-in profile.
const DefaultName = "default"

// ErrUnknownProfile is returned by Lookup for names not in the set.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile is an ordered list of commonly wanted column names.
type Profile struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Columns     []string `yaml:"columns" json:"columns"`
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Set is an immutable collection of profiles in definition order.
type Set struct {
	order  []string
	byName map[string]Profile
}

// NewSet returns a set holding only the default profile.
func NewSet(defaults []string) *Set {
	s := &Set{byName: make(map[string]Profile)}
	s.add(Profile{
		Name:        DefaultName,
		Description: "Bare minimum contact columns",
		Columns:     append([]string(nil), defaults...),
	})
	return s
}

// LoadFile reads profiles from a YAML file on top of the default profile.
// An empty path returns NewSet(defaults).
func LoadFile(path string, defaults []string) (*Set, error) {
	if path == "" {
		return NewSet(defaults), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	s, err := Parse(data, defaults)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML profile definitions on top of the default profile.
// Unknown keys, unnamed profiles, duplicate names and empty column lists are
// rejected. A profile named "default" replaces the built-in one.
func Parse(data []byte, defaults []string) (*Set, error) {
	var f profileFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	s := NewSet(defaults)
	seen := make(map[string]bool, len(f.Profiles))
	for i, p := range f.Profiles {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d: name is required", i+1)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("profile %q: defined more than once", p.Name)
		}
		seen[p.Name] = true

		cols := make([]string, 0, len(p.Columns))
		for _, c := range p.Columns {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("profile %q: no columns", p.Name)
		}
		p.Columns = cols

		s.add(p)
	}

	return s, nil
}

func (s *Set) add(p Profile) {
	if _, ok := s.byName[p.Name]; !ok {
		s.order = append(s.order, p.Name)
	}
	s.byName[p.Name] = p
}

// Lookup returns the named profile. An empty name means DefaultName.
func (s *Set) Lookup(name string) (Profile, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := s.byName[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q", ErrUnknownProfile, name)
	}
	p.Columns = append([]string(nil), p.Columns...)
	return p, nil
}

// Columns is Lookup returning only the column list.
func (s *Set) Columns(name string) ([]string, error) {
	p, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Columns, nil
}

// Names returns profile names in definition order, "default" first.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// All returns copies of every profile in definition order.
func (s *Set) All() []Profile {
	out := make([]Profile, 0, len(s.order))
	for _, name := range s.order {
		p, _ := s.Lookup(name)
		out = append(out, p)
	}
	return out
}
