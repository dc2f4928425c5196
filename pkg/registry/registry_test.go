package registry

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

// seqIDs returns an id generator yielding "id-1", "id-2", ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestRegistry(opts ...Option) *Registry {
	base := []Option{WithIDFunc(seqIDs()), WithClock(fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))}
	return New(append(base, opts...)...)
}

func passingInput(code string) tolerance.Input {
	return tolerance.Input{
		Code: code, NominalWidth: 1200, NominalHeight: 1500, Limit: 3,
		WidthTop: 1198, WidthMiddle: 1201, WidthBottom: 1199,
		HeightLeft: 1499, HeightMiddle: 1502, HeightRight: 1500,
	}
}

func numbers(fs []Floor) []int {
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = f.Number
	}
	return out
}

func ptr[T any](v T) *T { return &v }

// --- floors ---

func TestNew_SingleEmptyFloor(t *testing.T) {
	r := newTestRegistry()
	fs := r.Floors()
	if len(fs) != 1 {
		t.Fatalf("Floors: got %d, want 1", len(fs))
	}
	if fs[0].Number != 1 || fs[0].Label() != "Floor 1" {
		t.Errorf("floor = %+v, want number 1 labelled Floor 1", fs[0])
	}
	if idx, _ := r.Current(); idx != 0 {
		t.Errorf("Current = %d, want 0", idx)
	}
}

func TestAddFloor_RenumbersAndSelects(t *testing.T) {
	r := newTestRegistry()
	r.AddFloor("")
	f := r.AddFloor("Roof")

	if diff := cmp.Diff([]int{1, 2, 3}, numbers(r.Floors())); diff != "" {
		t.Errorf("numbers (-want +got):\n%s", diff)
	}
	if f.Number != 3 || f.Label() != "Roof" {
		t.Errorf("added floor = %+v, want number 3 named Roof", f)
	}
	idx, cur := r.Current()
	if idx != 2 || cur.ID != f.ID {
		t.Errorf("Current = %d (%s), want 2 (%s)", idx, cur.ID, f.ID)
	}
}

func TestRemoveFloor_RenumbersRemaining(t *testing.T) {
	r := newTestRegistry()
	first := r.Floors()[0]
	second := r.AddFloor("")
	third := r.AddFloor("")

	if err := r.RemoveFloor(second.ID); err != nil {
		t.Fatalf("RemoveFloor: %v", err)
	}
	fs := r.Floors()
	if diff := cmp.Diff([]int{1, 2}, numbers(fs)); diff != "" {
		t.Errorf("numbers (-want +got):\n%s", diff)
	}
	if fs[0].ID != first.ID || fs[1].ID != third.ID {
		t.Errorf("order changed: %s, %s", fs[0].ID, fs[1].ID)
	}
	if fs[1].Label() != "Floor 2" {
		t.Errorf("generated label should follow the new number, got %q", fs[1].Label())
	}
}

func TestRemoveFloor_LastFloorReplacedByFreshOne(t *testing.T) {
	r := newTestRegistry()
	only := r.Floors()[0]
	if _, err := r.AddWindow(only.ID, passingInput("W1")); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}

	if err := r.RemoveFloor(only.ID); err != nil {
		t.Fatalf("RemoveFloor: %v", err)
	}
	fs := r.Floors()
	if len(fs) != 1 {
		t.Fatalf("Floors: got %d, want 1", len(fs))
	}
	if fs[0].ID == only.ID {
		t.Error("expected a fresh floor id")
	}
	if fs[0].Number != 1 || len(fs[0].Windows) != 0 {
		t.Errorf("fresh floor = %+v, want number 1 with no windows", fs[0])
	}
}

func TestRemoveFloor_ClampsSelection(t *testing.T) {
	r := newTestRegistry()
	r.AddFloor("")
	last := r.AddFloor("") // selected, index 2

	if err := r.RemoveFloor(last.ID); err != nil {
		t.Fatalf("RemoveFloor: %v", err)
	}
	if idx, _ := r.Current(); idx != 1 {
		t.Errorf("Current = %d, want 1", idx)
	}
}

func TestRemoveFloor_UnknownIsNoOp(t *testing.T) {
	r := newTestRegistry()
	r.AddFloor("")
	before := r.Floors()

	if err := r.RemoveFloor("nope"); !errors.Is(err, ErrFloorNotFound) {
		t.Errorf("RemoveFloor: got %v, want ErrFloorNotFound", err)
	}
	if diff := cmp.Diff(before, r.Floors()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
}

func TestFloorNumbering_RandomSequence(t *testing.T) {
	r := newTestRegistry()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		fs := r.Floors()
		if rng.Intn(3) == 0 {
			r.AddFloor("")
		} else {
			_ = r.RemoveFloor(fs[rng.Intn(len(fs))].ID)
		}

		fs = r.Floors()
		if len(fs) == 0 {
			t.Fatalf("step %d: registry has no floors", i)
		}
		for j, f := range fs {
			if f.Number != j+1 {
				t.Fatalf("step %d: floor %d has number %d", i, j, f.Number)
			}
		}
		if idx, _ := r.Current(); idx < 0 || idx >= len(fs) {
			t.Fatalf("step %d: current index %d out of range [0,%d)", i, idx, len(fs))
		}
	}
}

func TestRenameFloor(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]

	got, err := r.RenameFloor(f.ID, "Ground")
	if err != nil {
		t.Fatalf("RenameFloor: %v", err)
	}
	if got.Label() != "Ground" {
		t.Errorf("Label = %q, want Ground", got.Label())
	}
	if _, err := r.RenameFloor("nope", "x"); !errors.Is(err, ErrFloorNotFound) {
		t.Errorf("RenameFloor unknown: got %v", err)
	}
}

func TestClearAll(t *testing.T) {
	r := newTestRegistry()
	f := r.AddFloor("")
	r.AddFloor("")
	if _, err := r.AddWindow(f.ID, passingInput("W1")); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}

	r.ClearAll()
	fs := r.Floors()
	if len(fs) != 1 || fs[0].Number != 1 || len(fs[0].Windows) != 0 {
		t.Errorf("after ClearAll: %+v", fs)
	}
	if idx, _ := r.Current(); idx != 0 {
		t.Errorf("Current = %d, want 0", idx)
	}
}

func TestSelect(t *testing.T) {
	r := newTestRegistry()
	r.AddFloor("")

	if err := r.Select(0); err != nil {
		t.Fatalf("Select(0): %v", err)
	}
	if idx, _ := r.Current(); idx != 0 {
		t.Errorf("Current = %d, want 0", idx)
	}
	for _, bad := range []int{-1, 2} {
		if err := r.Select(bad); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Select(%d): got %v, want ErrIndexOutOfRange", bad, err)
		}
	}
}

// --- windows ---

func TestAddWindow_DerivesBeforeStorage(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]

	w, err := r.AddWindow(f.ID, passingInput("W1"))
	if err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if w.ID == "" || w.FloorID != f.ID {
		t.Errorf("identity not assigned: %+v", w)
	}
	if w.Status != tolerance.StatusPass {
		t.Errorf("Status = %q, want pass", w.Status)
	}
	want := tolerance.Evaluate(passingInput("W1"), tolerance.DefaultWarningMultiplier)
	if w.Result != want {
		t.Errorf("Result = %+v, want %+v", w.Result, want)
	}

	stored, ok := r.Window(f.ID, w.ID)
	if !ok || stored != w {
		t.Errorf("stored window = %+v, %v", stored, ok)
	}
}

func TestAddWindow_PreservesInsertionOrder(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	for _, code := range []string{"C", "A", "B"} {
		if _, err := r.AddWindow(f.ID, passingInput(code)); err != nil {
			t.Fatalf("AddWindow %s: %v", code, err)
		}
	}
	got, _ := r.Floor(f.ID)
	var codes []string
	for _, w := range got.Windows {
		codes = append(codes, w.Code)
	}
	if diff := cmp.Diff([]string{"C", "A", "B"}, codes); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestAddWindow_UniqueIDs(t *testing.T) {
	r := New() // default UUID generator
	f := r.Floors()[0]
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		w, err := r.AddWindow(f.ID, passingInput("W"))
		if err != nil {
			t.Fatalf("AddWindow: %v", err)
		}
		if seen[w.ID] {
			t.Fatalf("duplicate id %s", w.ID)
		}
		seen[w.ID] = true
	}
}

func TestAddWindow_Errors(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]

	if _, err := r.AddWindow("nope", passingInput("W1")); !errors.Is(err, ErrFloorNotFound) {
		t.Errorf("unknown floor: got %v, want ErrFloorNotFound", err)
	}
	for _, limit := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		in := passingInput("W1")
		in.Limit = limit
		if _, err := r.AddWindow(f.ID, in); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("limit %v: got %v, want ErrInvalidLimit", limit, err)
		}
	}
	got, _ := r.Floor(f.ID)
	if len(got.Windows) != 0 {
		t.Errorf("failed adds must not store windows, have %d", len(got.Windows))
	}
}

func TestAddWindow_ZeroDimensionsDoNotFail(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	w, err := r.AddWindow(f.ID, tolerance.Input{Code: "Z", Limit: 1})
	if err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if w.Status != tolerance.StatusPass {
		t.Errorf("all-zero window Status = %q, want pass", w.Status)
	}
}

func TestUpdateWindow_MergesPatchAndRederives(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	w, _ := r.AddWindow(f.ID, passingInput("W1"))

	// Push the width range to 20 → fail; everything else unchanged.
	got, err := r.UpdateWindow(f.ID, w.ID, Patch{WidthTop: ptr(1190.0), WidthMiddle: ptr(1210.0), WidthBottom: ptr(1195.0)})
	if err != nil {
		t.Fatalf("UpdateWindow: %v", err)
	}
	if got.ID != w.ID {
		t.Errorf("id changed: %s → %s", w.ID, got.ID)
	}
	if got.Code != "W1" || got.NominalWidth != 1200 || got.HeightLeft != 1499 {
		t.Errorf("unpatched fields changed: %+v", got.Input)
	}
	if got.WidthRange != 20 || got.Status != tolerance.StatusFail {
		t.Errorf("WidthRange = %v Status = %q, want 20 / fail", got.WidthRange, got.Status)
	}

	// Widening the limit restores the window.
	got, err = r.UpdateWindow(f.ID, w.ID, Patch{Limit: ptr(10.0)})
	if err != nil {
		t.Fatalf("UpdateWindow: %v", err)
	}
	if got.Status != tolerance.StatusPass {
		t.Errorf("Status after limit 10 = %q, want pass", got.Status)
	}
	stored, _ := r.Window(f.ID, w.ID)
	if stored != got {
		t.Errorf("stored differs from returned record")
	}
}

func TestUpdateWindow_Errors(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	w, _ := r.AddWindow(f.ID, passingInput("W1"))

	if _, err := r.UpdateWindow("nope", w.ID, Patch{}); !errors.Is(err, ErrFloorNotFound) {
		t.Errorf("unknown floor: got %v", err)
	}
	if _, err := r.UpdateWindow(f.ID, "nope", Patch{}); !errors.Is(err, ErrWindowNotFound) {
		t.Errorf("unknown window: got %v", err)
	}
	if _, err := r.UpdateWindow(f.ID, w.ID, Patch{Limit: ptr(0.0), Code: ptr("X")}); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("zero limit: got %v", err)
	}
	stored, _ := r.Window(f.ID, w.ID)
	if stored != w {
		t.Errorf("failed updates must leave the window untouched: %+v", stored)
	}
}

func TestUpdateWindowChecked(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	a, _ := r.AddWindow(f.ID, passingInput("A"))
	b, _ := r.AddWindow(f.ID, passingInput("B"))

	var seen tolerance.Input
	got, dup, err := r.UpdateWindowChecked(f.ID, b.ID, Patch{Code: ptr("A")}, func(in tolerance.Input) error {
		seen = in
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateWindowChecked: %v", err)
	}
	want := b.Input
	want.Code = "A"
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("check input (-want +got):\n%s", diff)
	}
	if !dup {
		t.Error("duplicate: got false, want true for code shared with A")
	}
	if got.Code != "A" {
		t.Errorf("Code: got %q, want A", got.Code)
	}

	// Renaming A away clears the duplicate for B's next edit.
	if _, dup, _ := r.UpdateWindowChecked(f.ID, a.ID, Patch{Code: ptr("C")}, nil); dup {
		t.Error("renaming A to C: unexpected duplicate")
	}
	if _, dup, _ := r.UpdateWindowChecked(f.ID, b.ID, Patch{Limit: ptr(4.0)}, nil); dup {
		t.Error("B after A renamed: unexpected duplicate")
	}

	errRejected := errors.New("rejected")
	before, _ := r.Window(f.ID, b.ID)
	if _, _, err := r.UpdateWindowChecked(f.ID, b.ID, Patch{Code: ptr("Z")}, func(tolerance.Input) error {
		return errRejected
	}); !errors.Is(err, errRejected) {
		t.Errorf("check error: got %v, want %v", err, errRejected)
	}
	if after, _ := r.Window(f.ID, b.ID); after != before {
		t.Errorf("rejected update changed the window: %+v", after)
	}
}

func TestUpdateWindowChecked_HoldsLockDuringCheck(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	w, _ := r.AddWindow(f.ID, passingInput("W"))

	entered := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		_, _, err := r.UpdateWindowChecked(f.ID, w.ID, Patch{Code: ptr("X")}, func(tolerance.Input) error {
			close(entered)
			<-release
			return nil
		})
		first <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		_, err := r.UpdateWindow(f.ID, w.ID, Patch{Limit: ptr(7.0)})
		second <- err
	}()

	select {
	case <-second:
		t.Fatal("concurrent update completed while the check was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second update: %v", err)
	}
	got, _ := r.Window(f.ID, w.ID)
	if got.Code != "X" || got.Limit != 7 {
		t.Errorf("final window: code %q limit %v, want X / 7", got.Code, got.Limit)
	}
}

func TestRemoveWindow(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	a, _ := r.AddWindow(f.ID, passingInput("A"))
	b, _ := r.AddWindow(f.ID, passingInput("B"))

	if err := r.RemoveWindow(f.ID, a.ID); err != nil {
		t.Fatalf("RemoveWindow: %v", err)
	}
	if err := r.RemoveWindow(f.ID, a.ID); !errors.Is(err, ErrWindowNotFound) {
		t.Errorf("second remove: got %v, want ErrWindowNotFound", err)
	}
	if err := r.RemoveWindow("nope", b.ID); !errors.Is(err, ErrFloorNotFound) {
		t.Errorf("unknown floor: got %v", err)
	}
	got, _ := r.Floor(f.ID)
	if len(got.Windows) != 1 || got.Windows[0].ID != b.ID {
		t.Errorf("windows = %+v, want only B", got.Windows)
	}
}

func TestCodeInUse(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	w, _ := r.AddWindow(f.ID, passingInput("W1"))

	if !r.CodeInUse(f.ID, "W1", "") {
		t.Error("W1 should be in use")
	}
	if r.CodeInUse(f.ID, "W1", w.ID) {
		t.Error("a window must not conflict with itself")
	}
	if r.CodeInUse(f.ID, "W2", "") {
		t.Error("W2 should be free")
	}
	other := r.AddFloor("")
	if r.CodeInUse(other.ID, "W1", "") {
		t.Error("codes are scoped per floor")
	}
}

// --- snapshots and multiplier ---

func TestFloors_ReturnsDeepCopy(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	r.AddWindow(f.ID, passingInput("W1")) //nolint:errcheck

	snap := r.Floors()
	snap[0].Windows[0].Code = "mutated"
	snap[0].Number = 99

	again := r.Floors()
	if again[0].Windows[0].Code != "W1" || again[0].Number != 1 {
		t.Errorf("snapshot mutation leaked into registry: %+v", again[0])
	}
}

func TestSetWarningMultiplier_Rederives(t *testing.T) {
	r := newTestRegistry()
	f := r.Floors()[0]
	in := passingInput("W1")
	// Mean width 1205 → width tolerance 5: fail at k=1.5 (4.5), warning at k=2 (6).
	in.WidthTop, in.WidthMiddle, in.WidthBottom = 1205, 1205, 1205
	w, _ := r.AddWindow(f.ID, in)
	if w.Status != tolerance.StatusFail {
		t.Fatalf("Status = %q, want fail", w.Status)
	}

	if changed := r.SetWarningMultiplier(2); changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
	if r.WarningMultiplier() != 2 {
		t.Errorf("WarningMultiplier = %v, want 2", r.WarningMultiplier())
	}
	got, _ := r.Window(f.ID, w.ID)
	if got.Status != tolerance.StatusWarning {
		t.Errorf("Status after k=2 = %q, want warning", got.Status)
	}

	r.SetWarningMultiplier(-1)
	if r.WarningMultiplier() != tolerance.DefaultWarningMultiplier {
		t.Errorf("invalid k should reset to default, got %v", r.WarningMultiplier())
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	r := New()
	f := r.Floors()[0]
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			r.AddWindow(f.ID, passingInput("W")) //nolint:errcheck
		}()
		go func() {
			defer wg.Done()
			r.Floors()
		}()
		go func() {
			defer wg.Done()
			r.AddFloor("")
		}()
	}
	wg.Wait()

	got, _ := r.Floor(f.ID)
	if len(got.Windows) != 50 {
		t.Errorf("windows = %d, want 50", len(got.Windows))
	}
	if r.FloorCount() != 51 {
		t.Errorf("FloorCount = %d, want 51", r.FloorCount())
	}
}
