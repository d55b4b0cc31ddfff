package telemetry

// Store holds the latest value per kind on the output side. It is owned by a
// single goroutine and performs no locking.
//
// There is no history and no interpolation: a stale but available value is
// preferred over none.
type Store struct {
	slots [NumKinds]OneMeasurement
}

// NewStore creates a store with every kind unavailable.
func NewStore() *Store {
	return &Store{}
}

// Update overwrites the slot of m.Kind and marks it available. Measurements
// of unknown kinds are ignored and reported with false.
func (s *Store) Update(m Measurement) bool {
	if !m.Kind.Valid() {
		return false
	}
	s.slots[m.Kind] = OneMeasurement{
		Available:   true,
		Value:       m.Value,
		TimestampMs: m.TimestampMs,
	}
	return true
}

// Read returns the slot of kind verbatim. Unknown kinds read as unavailable.
func (s *Store) Read(kind Kind) OneMeasurement {
	if !kind.Valid() {
		return OneMeasurement{}
	}
	return s.slots[kind]
}

// Field reads kind as a frame field.
func (s *Store) Field(kind Kind) Field {
	return Field{Kind: kind, OneMeasurement: s.Read(kind)}
}

// MarkUnavailable flags a source as absent, e.g. a sensor that was not found
// at startup. The last value is kept but must not be used.
func (s *Store) MarkUnavailable(kind Kind) {
	if !kind.Valid() {
		return
	}
	s.slots[kind].Available = false
}

// AnyAvailable reports whether at least one of the kinds is available.
func (s *Store) AnyAvailable(kinds ...Kind) bool {
	for _, k := range kinds {
		if s.Read(k).Available {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of all slots, indexed by kind.
func (s *Store) Snapshot() [NumKinds]OneMeasurement {
	return s.slots
}
