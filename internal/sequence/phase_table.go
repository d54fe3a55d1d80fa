package sequence

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrReadoutScheme is returned when a readout scheme does not match the number of phase-cycle runs.
var ErrReadoutScheme = errors.New("readout scheme does not match phase-cycle runs")

// PhaseTable expands the phase cycles declared on a sequence's transmit
// pulses into a fixed list of runs.
//
// Cycled events that share a group id are co-varied: the group advances one
// step per run and contains max(PhaseCycles) steps, with each member using
// step mod its own PhaseCycles. Distinct groups are cross-multiplied, ordered
// by group id with the highest id varying fastest.
type PhaseTable struct {
	groups []phaseGroup
	cycled map[int]cycledEvent // keyed by event index
	runs   int
	scheme []ReadoutStep
}

type phaseGroup struct {
	id   int
	size int
}

type cycledEvent struct {
	group  int // index into groups
	cycles int
}

// NewPhaseTable builds the phase table for seq.
func NewPhaseTable(seq *Sequence) (*PhaseTable, error) {
	table := &PhaseTable{
		cycled: make(map[int]cycledEvent),
		runs:   1,
	}
	if seq == nil {
		return table, nil
	}

	sizes := make(map[int]int)
	for _, event := range seq.Events {
		tx := event.Transmit()
		if tx == nil {
			continue
		}
		if tx.PhaseCycles < 0 {
			return nil, fmt.Errorf("%w: event %q has negative phase cycles", ErrInvalidEvent, event.Name)
		}
		if tx.PhaseCycles > 1 && tx.PhaseCycles > sizes[tx.PhaseCycleGroup] {
			sizes[tx.PhaseCycleGroup] = tx.PhaseCycles
		}
	}

	ids := make([]int, 0, len(sizes))
	for id := range sizes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	position := make(map[int]int, len(ids))
	for i, id := range ids {
		table.groups = append(table.groups, phaseGroup{id: id, size: sizes[id]})
		table.runs *= sizes[id]
		position[id] = i
	}

	for i, event := range seq.Events {
		tx := event.Transmit()
		if tx == nil || tx.PhaseCycles <= 1 {
			continue
		}
		table.cycled[i] = cycledEvent{group: position[tx.PhaseCycleGroup], cycles: tx.PhaseCycles}
	}

	for _, event := range seq.Events {
		if !event.IsReadout() {
			continue
		}
		scheme := event.Receive().ReadoutScheme
		if len(scheme) > 0 && len(scheme) != table.runs {
			return nil, fmt.Errorf("%w: event %q has %d entries, sequence needs %d",
				ErrReadoutScheme, event.Name, len(scheme), table.runs)
		}
		table.scheme = scheme
		break
	}

	return table, nil
}

// Runs is the number of distinct phase-cycle combinations.
func (t *PhaseTable) Runs() int {
	if t == nil {
		return 1
	}
	return t.runs
}

// Cycle returns the phase choices for the given run index.
func (t *PhaseTable) Cycle(run int) (Cycle, error) {
	if run < 0 || run >= t.Runs() {
		return Cycle{}, fmt.Errorf("run index %d out of range [0, %d)", run, t.Runs())
	}
	if t == nil {
		return Cycle{}, nil
	}

	steps := make([]int, len(t.groups))
	rem := run
	for g := len(t.groups) - 1; g >= 0; g-- {
		steps[g] = rem % t.groups[g].size
		rem /= t.groups[g].size
	}
	return Cycle{Run: run, table: t, steps: steps}, nil
}

// Cycles returns every run in index order.
func (t *PhaseTable) Cycles() []Cycle {
	cycles := make([]Cycle, 0, t.Runs())
	for run := 0; run < t.Runs(); run++ {
		c, _ := t.Cycle(run)
		cycles = append(cycles, c)
	}
	return cycles
}

// Cycle is one concrete run of a phase table. The zero value applies no
// phase cycling.
type Cycle struct {
	Run   int
	table *PhaseTable
	steps []int
}

// Step returns the cycle step k used by the event at eventIndex, or 0 when
// the event is not cycled.
func (c Cycle) Step(eventIndex int) int {
	if c.table == nil {
		return 0
	}
	ev, ok := c.table.cycled[eventIndex]
	if !ok {
		return 0
	}
	return c.steps[ev.group] % ev.cycles
}

// TxPhase returns the transmit phase in degrees, in [0, 360), for the event
// at eventIndex during this run.
func (c Cycle) TxPhase(eventIndex int, tx *TransmitPulse) float64 {
	if tx == nil {
		return 0
	}
	phase := tx.Phase
	if c.table != nil {
		if ev, ok := c.table.cycled[eventIndex]; ok {
			phase += float64(c.Step(eventIndex)) * 360 / float64(ev.cycles)
		}
	}
	return normalizeDegrees(phase)
}

// Readout returns the receiver weighting for this run.
func (c Cycle) Readout() ReadoutStep {
	if c.table == nil || len(c.table.scheme) == 0 {
		return ReadoutStep{Weight: 1}
	}
	return c.table.scheme[c.Run]
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
