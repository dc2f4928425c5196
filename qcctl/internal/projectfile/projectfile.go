// Package projectfile loads inspection projects recorded as YAML and replays
// them into a registry.
//
// Example:
//
//	project:
//	  building_name: Tower A
//	  engineer_name: R. Karimi
//	  date: "2026-03-01"
//	default_limit: 3
//	floors:
//	  - name: Ground
//	    windows:
//	      - code: W-1
//	        nominal_width: 1200
//	        nominal_height: 1500
//	        width: [1198, 1201, 1199]
//	        height: [1499, 1502, 1500]
package projectfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
	"github.com/tolerancevision/tolerancevision/pkg/types"
)

// ErrEmpty is returned for a file that declares no floors.
var ErrEmpty = errors.New("projectfile: no floors")

// Load reads and parses the project file at path.
func Load(path string) (types.ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ProjectFile{}, fmt.Errorf("projectfile: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a project file. Unknown keys are rejected so typos in field
// names do not silently zero a measurement.
func Parse(data []byte) (types.ProjectFile, error) {
	var pf types.ProjectFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return types.ProjectFile{}, fmt.Errorf("projectfile: parse: %w", err)
	}
	if len(pf.Floors) == 0 {
		return types.ProjectFile{}, ErrEmpty
	}
	return pf, nil
}

// Build replays pf into a fresh registry. Every window is validated first and
// all problems are returned together, each prefixed with its position.
func Build(pf types.ProjectFile, opts ...registry.Option) (*registry.Registry, error) {
	var errs []error
	for fi, f := range pf.Floors {
		for wi, w := range f.Windows {
			if err := tolerance.Validate(w.Input(pf.DefaultLimit)); err != nil {
				errs = append(errs, fmt.Errorf("floor %d window %d (%s): %w", fi+1, wi+1, w.Code, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if pf.WarningMultiplier > 0 {
		opts = append(opts, registry.WithWarningMultiplier(pf.WarningMultiplier))
	}
	reg := registry.New(opts...)

	// New starts with one empty floor; the first file floor takes it over.
	first := reg.Floors()[0]
	for fi, f := range pf.Floors {
		var floorID string
		if fi == 0 {
			if _, err := reg.RenameFloor(first.ID, f.Name); err != nil {
				return nil, fmt.Errorf("projectfile: floor 1: %w", err)
			}
			floorID = first.ID
		} else {
			floorID = reg.AddFloor(f.Name).ID
		}
		for wi, w := range f.Windows {
			if _, err := reg.AddWindow(floorID, w.Input(pf.DefaultLimit)); err != nil {
				return nil, fmt.Errorf("projectfile: floor %d window %d: %w", fi+1, wi+1, err)
			}
		}
	}
	if err := reg.Select(0); err != nil {
		return nil, fmt.Errorf("projectfile: %w", err)
	}
	return reg, nil
}
