package scheduler

import "sort"

// Snapshot is a lightweight view of the registry for diagnostics.
type Snapshot struct {
	Total    int
	ByStatus map[Status]int

	// Tasks are ordered by submission time.
	Tasks []Record
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Total:    len(s.tasks),
		ByStatus: make(map[Status]int, 7),
		Tasks:    make([]Record, 0, len(s.tasks)),
	}
	for _, t := range s.tasks {
		snap.ByStatus[t.status]++
		snap.Tasks = append(snap.Tasks, t.recordLocked())
	}
	s.mu.Unlock()

	sort.Slice(snap.Tasks, func(i, j int) bool {
		a, b := snap.Tasks[i], snap.Tasks[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.ID < b.ID
	})
	return snap
}
