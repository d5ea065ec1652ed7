package board

import "time"

// SlotView is a slot together with its derived progress.
type SlotView struct {
	Position  int        `json:"position"`
	Status    Status     `json:"status"`
	Occupancy *Occupancy `json:"occupancy,omitempty"`
	Progress  *Progress  `json:"progress,omitempty"`
}

// MachineView is a machine as shown to operators.
type MachineView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Active   bool       `json:"active"`
	Occupied int        `json:"occupied"`
	Ready    int        `json:"ready"`
	Slots    []SlotView `json:"slots"`
}

// Snapshot is the whole board evaluated at one instant.
type Snapshot struct {
	At            time.Time     `json:"at"`
	Machines      []MachineView `json:"machines"`
	OccupiedCount int           `json:"occupiedCount"`
	ReadyCount    int           `json:"readyCount"`
	TotalCapacity int           `json:"totalCapacity"`
}

// Snapshot evaluates every slot at now under a single read lock, so the
// aggregates always agree with the per-slot statuses.
func (b *Board) Snapshot(now time.Time) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		At:            now,
		Machines:      make([]MachineView, 0, len(b.machines)),
		TotalCapacity: len(b.machines) * SlotsPerMachine,
	}
	for _, m := range b.machines {
		view := MachineView{
			ID:     m.ID,
			Name:   m.Name,
			Active: m.Active,
			Slots:  make([]SlotView, 0, SlotsPerMachine),
		}
		for _, s := range m.Slots {
			sv := SlotView{Position: s.Position, Status: StatusFree}
			if s.Occupancy != nil {
				occ := *s.Occupancy
				p := occ.Progress(now)
				sv.Occupancy = &occ
				sv.Progress = &p
				sv.Status = Classify(true, p.Percent)
				view.Occupied++
				if sv.Status == StatusReady {
					view.Ready++
				}
			}
			view.Slots = append(view.Slots, sv)
		}
		snap.OccupiedCount += view.Occupied
		snap.ReadyCount += view.Ready
		snap.Machines = append(snap.Machines, view)
	}
	return snap
}
