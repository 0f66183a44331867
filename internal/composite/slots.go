package composite

import (
	"fmt"
	"sync"

	"cubemix/internal/lut"
	"cubemix/internal/whitebalance"
)

// Slot identifies one of the two LUT layers.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotSecondary
)

func (s Slot) String() string {
	switch s {
	case SlotPrimary:
		return "primary"
	case SlotSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// ChangeKind describes what a Change event altered.
type ChangeKind string

const (
	ChangeTable        ChangeKind = "table"
	ChangeCleared      ChangeKind = "cleared"
	ChangeOpacity      ChangeKind = "opacity"
	ChangeWhiteBalance ChangeKind = "white_balance"
)

// Change is delivered to listeners after every successful mutation.
// Generation increases by one per change and orders events.
type Change struct {
	Kind       ChangeKind
	Slot       Slot
	Generation uint64
	Transform  Transform
}

// Listener receives change events. It runs on the mutating goroutine after
// the lock is released, so it may call back into Slots.
type Listener func(Change)

// Slots holds the current grading selection. The zero value is not usable;
// call NewSlots.
type Slots struct {
	mu         sync.Mutex
	stages     [2]*Stage
	opacity    [2]float32
	wb         whitebalance.Adjustment
	generation uint64

	nextListener int
	listeners    map[int]Listener
}

// NewSlots returns an empty selection with both opacities at 1.
func NewSlots() *Slots {
	return &Slots{
		opacity:   [2]float32{1, 1},
		listeners: make(map[int]Listener),
	}
}

// Load parses data and installs it in slot. On a parse error the previous
// table stays selected and the error is returned unchanged.
func (s *Slots) Load(slot Slot, name string, data []byte) (*lut.Table, error) {
	table, err := lut.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s lut %q: %w", slot, name, err)
	}
	s.Set(slot, name, table)
	return table, nil
}

// LoadPrimary is Load(SlotPrimary, ...).
func (s *Slots) LoadPrimary(name string, data []byte) (*lut.Table, error) {
	return s.Load(SlotPrimary, name, data)
}

// LoadSecondary is Load(SlotSecondary, ...).
func (s *Slots) LoadSecondary(name string, data []byte) (*lut.Table, error) {
	return s.Load(SlotSecondary, name, data)
}

// Set installs an already parsed table.
func (s *Slots) Set(slot Slot, name string, table *lut.Table) {
	if table == nil {
		s.Clear(slot)
		return
	}
	s.mutate(ChangeTable, slot, func() bool {
		s.stages[slot] = &Stage{Name: name, Table: table}
		return true
	})
}

// Clear removes the table from slot so the stage is skipped.
func (s *Slots) Clear(slot Slot) {
	s.mutate(ChangeCleared, slot, func() bool {
		if s.stages[slot] == nil {
			return false
		}
		s.stages[slot] = nil
		return true
	})
}

// SetOpacity records the blend factor for slot, clamped to [0, 1].
func (s *Slots) SetOpacity(slot Slot, v float32) {
	v = ClampOpacity(v)
	s.mutate(ChangeOpacity, slot, func() bool {
		if s.opacity[slot] == v {
			return false
		}
		s.opacity[slot] = v
		return true
	})
}

// SetWhiteBalance records the white-balance adjustment, clamped to its range.
func (s *Slots) SetWhiteBalance(a whitebalance.Adjustment) {
	a = a.Clamp()
	s.mutate(ChangeWhiteBalance, SlotPrimary, func() bool {
		if s.wb == a {
			return false
		}
		s.wb = a
		return true
	})
}

// Snapshot returns the current Transform and its generation.
func (s *Slots) Snapshot() (Transform, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transformLocked(), s.generation
}

// Subscribe registers fn and returns a function that removes it.
func (s *Slots) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Slots) mutate(kind ChangeKind, slot Slot, apply func() bool) {
	s.mu.Lock()
	if !apply() {
		s.mu.Unlock()
		return
	}
	s.generation++
	change := Change{
		Kind:       kind,
		Slot:       slot,
		Generation: s.generation,
		Transform:  s.transformLocked(),
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (s *Slots) transformLocked() Transform {
	t := Transform{WhiteBalance: s.wb}
	if st := s.stages[SlotPrimary]; st != nil {
		t.Primary = &Stage{Name: st.Name, Table: st.Table, Opacity: s.opacity[SlotPrimary]}
	}
	if st := s.stages[SlotSecondary]; st != nil {
		t.Secondary = &Stage{Name: st.Name, Table: st.Table, Opacity: s.opacity[SlotSecondary]}
	}
	return t
}
