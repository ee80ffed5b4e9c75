package terminal

// store is the arena of per-instance snapshots for one trading account.
// It is not safe for concurrent use; the owning State serializes access.
type store struct {
	snapshots map[string]*snapshot
}

func newStore() *store {
	return &store{snapshots: make(map[string]*snapshot)}
}

func (s *store) get(index string) (*snapshot, bool) {
	snap, ok := s.snapshots[index]
	return snap, ok
}

func (s *store) getOrCreate(index string) *snapshot {
	if snap, ok := s.snapshots[index]; ok {
		return snap
	}
	snap := newSnapshot(index)
	s.snapshots[index] = snap
	return snap
}

func (s *store) delete(index string) {
	delete(s.snapshots, index)
}

// siblings returns the snapshots sharing the instance number, excluding the
// given index. Pass an empty exclude to list the whole slot.
func (s *store) siblings(instanceNumber, exclude string) []*snapshot {
	var out []*snapshot
	for index, snap := range s.snapshots {
		if snap.instanceNumber != instanceNumber || index == exclude {
			continue
		}
		out = append(out, snap)
	}
	return out
}

func (s *store) all() []*snapshot {
	out := make([]*snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	return out
}
