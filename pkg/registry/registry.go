package registry

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

// Errors returned by Registry operations. State is never modified when an
// operation returns an error.
var (
	ErrFloorNotFound   = errors.New("registry: floor not found")
	ErrWindowNotFound  = errors.New("registry: window not found")
	ErrInvalidLimit    = errors.New("registry: limit must be a positive finite number")
	ErrIndexOutOfRange = errors.New("registry: floor index out of range")
)

// Window is a stored, fully-derived window measurement.
type Window struct {
	ID      string
	FloorID string

	// Input is the raw measurement as last written by AddWindow/UpdateWindow.
	tolerance.Input

	// Result is always Evaluate(Input, k) for the registry's current k.
	tolerance.Result

	UpdatedAt time.Time
}

// Floor is one storey of the project and its windows in display order.
type Floor struct {
	ID     string
	Number int // 1-based, contiguous across the project

	// Name is the operator-supplied floor name. Empty means "use the
	// generated label"; see Label.
	Name string

	Windows   []Window
	CreatedAt time.Time
}

// Label returns the floor's display name: Name when set, otherwise a label
// generated from the current floor number.
func (f Floor) Label() string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("Floor %d", f.Number)
}

func (f *Floor) clone() Floor {
	cp := *f
	cp.Windows = slices.Clone(f.Windows)
	return cp
}

func (f *Floor) windowIndex(id string) int {
	return slices.IndexFunc(f.Windows, func(w Window) bool { return w.ID == id })
}

// Patch is a partial update of a window's input. Nil fields are left
// unchanged.
type Patch struct {
	Code          *string
	NominalWidth  *float64
	NominalHeight *float64
	Limit         *float64
	WidthTop      *float64
	WidthMiddle   *float64
	WidthBottom   *float64
	HeightLeft    *float64
	HeightMiddle  *float64
	HeightRight   *float64
}

// Apply returns in with every non-nil field of p written over it.
func (p Patch) Apply(in tolerance.Input) tolerance.Input {
	if p.Code != nil {
		in.Code = *p.Code
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&in.NominalWidth, p.NominalWidth)
	set(&in.NominalHeight, p.NominalHeight)
	set(&in.Limit, p.Limit)
	set(&in.WidthTop, p.WidthTop)
	set(&in.WidthMiddle, p.WidthMiddle)
	set(&in.WidthBottom, p.WidthBottom)
	set(&in.HeightLeft, p.HeightLeft)
	set(&in.HeightMiddle, p.HeightMiddle)
	set(&in.HeightRight, p.HeightRight)
	return in
}

// Registry is the mutable collection of floors and windows for one project.
type Registry struct {
	mu      sync.RWMutex
	floors  []*Floor
	current int     // selected floor index
	k       float64 // warning multiplier

	newID func() string
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithWarningMultiplier sets the warning multiplier used for classification.
// Invalid values fall back to tolerance.DefaultWarningMultiplier.
func WithWarningMultiplier(k float64) Option {
	return func(r *Registry) { r.k = tolerance.EffectiveMultiplier(k) }
}

// WithIDFunc replaces the UUID generator, mainly for deterministic tests.
func WithIDFunc(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithClock replaces time.Now for UpdatedAt/CreatedAt stamps.
func WithClock(fn func() time.Time) Option {
	return func(r *Registry) { r.now = fn }
}

// New returns a Registry holding a single empty floor.
func New(opts ...Option) *Registry {
	r := &Registry{
		k:     tolerance.DefaultWarningMultiplier,
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.floors = []*Floor{r.newFloor("")}
	r.renumber()
	return r
}

// --- floors -----------------------------------------------------------------

// AddFloor appends a new empty floor, renumbers all floors and selects the
// new one. An empty name gives the floor a generated label.
func (r *Registry) AddFloor(name string) Floor {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.newFloor(name)
	r.floors = append(r.floors, f)
	r.renumber()
	r.current = len(r.floors) - 1
	return f.clone()
}

// RemoveFloor deletes the floor with the given id. Removing the only floor
// replaces it with a fresh empty floor. The selection is clamped to the last
// floor if it now points past the end.
func (r *Registry) RemoveFloor(floorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.floorIndex(floorID)
	if idx < 0 {
		return ErrFloorNotFound
	}
	r.floors = slices.Delete(r.floors, idx, idx+1)
	if len(r.floors) == 0 {
		r.floors = []*Floor{r.newFloor("")}
	}
	r.renumber()
	if r.current >= len(r.floors) {
		r.current = len(r.floors) - 1
	}
	return nil
}

// RenameFloor sets a floor's name. An empty name reverts to the generated label.
func (r *Registry) RenameFloor(floorID, name string) (Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.floorIndex(floorID)
	if idx < 0 {
		return Floor{}, ErrFloorNotFound
	}
	r.floors[idx].Name = name
	return r.floors[idx].clone(), nil
}

// ClearAll discards every floor and window, leaving one empty floor selected.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.floors = []*Floor{r.newFloor("")}
	r.renumber()
	r.current = 0
}

// Floors returns a deep copy of all floors in order.
func (r *Registry) Floors() []Floor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Floor, len(r.floors))
	for i, f := range r.floors {
		out[i] = f.clone()
	}
	return out
}

// Floor returns a copy of the floor with the given id.
func (r *Registry) Floor(floorID string) (Floor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.floorIndex(floorID)
	if idx < 0 {
		return Floor{}, false
	}
	return r.floors[idx].clone(), true
}

// FloorCount returns the number of floors. It is always at least 1.
func (r *Registry) FloorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.floors)
}

// --- selection --------------------------------------------------------------

// Current returns the selected floor index and a copy of that floor.
func (r *Registry) Current() (int, Floor) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.floors[r.current].clone()
}

// Select makes the floor at index the current floor.
func (r *Registry) Select(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.floors) {
		return fmt.Errorf("%w: %d (have %d floors)", ErrIndexOutOfRange, index, len(r.floors))
	}
	r.current = index
	return nil
}

// --- windows ----------------------------------------------------------------

// AddWindow evaluates in and appends it to the floor's window list under a
// fresh id. It fails without modifying state if the floor does not exist or
// the limit is not a positive finite number.
func (r *Registry) AddWindow(floorID string, in tolerance.Input) (Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.floorIndex(floorID)
	if idx < 0 {
		return Window{}, ErrFloorNotFound
	}
	if !validLimit(in.Limit) {
		return Window{}, ErrInvalidLimit
	}

	w := Window{
		ID:        r.newID(),
		FloorID:   floorID,
		Input:     in,
		Result:    tolerance.Evaluate(in, r.k),
		UpdatedAt: r.now(),
	}
	f := r.floors[idx]
	f.Windows = append(f.Windows, w)
	return w, nil
}

// UpdateWindow merges patch over the window's current input, re-evaluates the
// merged input and replaces the stored record. The window keeps its id and
// position.
func (r *Registry) UpdateWindow(floorID, windowID string, patch Patch) (Window, error) {
	w, _, err := r.UpdateWindowChecked(floorID, windowID, patch, nil)
	return w, err
}

// UpdateWindowChecked is UpdateWindow with check run against the merged input
// while the registry is locked. An error from check aborts the update and is
// returned as is. duplicate reports whether another window on the floor used
// the merged code at the moment of the update.
func (r *Registry) UpdateWindowChecked(floorID, windowID string, patch Patch, check func(tolerance.Input) error) (w Window, duplicate bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fi := r.floorIndex(floorID)
	if fi < 0 {
		return Window{}, false, ErrFloorNotFound
	}
	f := r.floors[fi]
	wi := f.windowIndex(windowID)
	if wi < 0 {
		return Window{}, false, ErrWindowNotFound
	}

	in := patch.Apply(f.Windows[wi].Input)
	if check != nil {
		if err := check(in); err != nil {
			return Window{}, false, err
		}
	}
	if !validLimit(in.Limit) {
		return Window{}, false, ErrInvalidLimit
	}

	duplicate = slices.ContainsFunc(f.Windows, func(o Window) bool {
		return o.ID != windowID && o.Code == in.Code
	})

	w = f.Windows[wi]
	w.Input = in
	w.Result = tolerance.Evaluate(in, r.k)
	w.UpdatedAt = r.now()
	f.Windows[wi] = w
	return w, duplicate, nil
}

// RemoveWindow deletes a window from a floor.
func (r *Registry) RemoveWindow(floorID, windowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fi := r.floorIndex(floorID)
	if fi < 0 {
		return ErrFloorNotFound
	}
	f := r.floors[fi]
	wi := f.windowIndex(windowID)
	if wi < 0 {
		return ErrWindowNotFound
	}
	f.Windows = slices.Delete(f.Windows, wi, wi+1)
	return nil
}

// Window returns a copy of one stored window.
func (r *Registry) Window(floorID, windowID string) (Window, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fi := r.floorIndex(floorID)
	if fi < 0 {
		return Window{}, false
	}
	f := r.floors[fi]
	wi := f.windowIndex(windowID)
	if wi < 0 {
		return Window{}, false
	}
	return f.Windows[wi], true
}

// CodeInUse reports whether another window on the floor already uses code.
// exceptID excludes one window from the check (the one being edited).
// Code uniqueness is advisory; the registry never enforces it.
func (r *Registry) CodeInUse(floorID, code, exceptID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fi := r.floorIndex(floorID)
	if fi < 0 {
		return false
	}
	return slices.ContainsFunc(r.floors[fi].Windows, func(w Window) bool {
		return w.ID != exceptID && w.Code == code
	})
}

// --- warning multiplier -----------------------------------------------------

// WarningMultiplier returns the multiplier currently used for classification.
func (r *Registry) WarningMultiplier() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.k
}

// SetWarningMultiplier changes k and re-derives every stored window so that
// all records stay a function of their input and the current k. It returns
// the number of windows whose status changed.
func (r *Registry) SetWarningMultiplier(k float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.k = tolerance.EffectiveMultiplier(k)
	changed := 0
	for _, f := range r.floors {
		for i := range f.Windows {
			w := &f.Windows[i]
			res := tolerance.Evaluate(w.Input, r.k)
			if res.Status != w.Status {
				changed++
			}
			w.Result = res
		}
	}
	return changed
}

// --- internal ---------------------------------------------------------------

func (r *Registry) newFloor(name string) *Floor {
	return &Floor{ID: r.newID(), Name: name, CreatedAt: r.now()}
}

// renumber restores the 1..N numbering invariant. Callers hold r.mu.
func (r *Registry) renumber() {
	for i, f := range r.floors {
		f.Number = i + 1
	}
}

func (r *Registry) floorIndex(id string) int {
	return slices.IndexFunc(r.floors, func(f *Floor) bool { return f.ID == id })
}

func validLimit(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
