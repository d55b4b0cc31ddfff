package telemetry

import "testing"

func TestStore_UnsetReadsAreStable(t *testing.T) {
	s := NewStore()

	for i := 0; i < 5; i++ {
		for k := 0; k < NumKinds; k++ {
			m := s.Read(Kind(k))
			if m.Available || m.Value != 0 {
				t.Fatalf("read %d of %s: expected unavailable zero slot, got %+v", i, Kind(k), m)
			}
		}
	}
}

func TestStore_UpdateOverwrites(t *testing.T) {
	s := NewStore()

	s.Update(Measurement{Kind: Airspeed, Value: 500, TimestampMs: 10})
	s.Update(Measurement{Kind: Airspeed, Value: 523, TimestampMs: 210})

	got := s.Read(Airspeed)
	want := OneMeasurement{Available: true, Value: 523, TimestampMs: 210}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if s.Read(VerticalSpeed).Available {
		t.Error("updating airspeed must not touch vertical speed")
	}
}

func TestStore_MarkUnavailable(t *testing.T) {
	s := NewStore()
	s.Update(Measurement{Kind: Altitude, Value: 12_000})

	s.MarkUnavailable(Altitude)
	if m := s.Read(Altitude); m.Available {
		t.Errorf("expected altitude unavailable, got %+v", m)
	}

	s.Update(Measurement{Kind: Altitude, Value: 12_100})
	if m := s.Read(Altitude); !m.Available || m.Value != 12_100 {
		t.Errorf("expected altitude available again, got %+v", m)
	}
}

func TestStore_UnknownKind(t *testing.T) {
	s := NewStore()

	if s.Update(Measurement{Kind: Kind(NumKinds), Value: 1}) {
		t.Error("update of unknown kind must be rejected")
	}
	if m := s.Read(Kind(200)); m.Available {
		t.Errorf("unknown kind must read unavailable, got %+v", m)
	}
	s.MarkUnavailable(Kind(200)) // must not panic
}

func TestStore_AnyAvailable(t *testing.T) {
	s := NewStore()
	if s.AnyAvailable(Voltages[:]...) {
		t.Fatal("no voltage has been set yet")
	}

	s.Update(Measurement{Kind: Voltage3, Value: 3300})
	if !s.AnyAvailable(Voltages[:]...) {
		t.Error("expected a voltage to be available")
	}
}

func TestKind_Names(t *testing.T) {
	for k := 0; k < NumKinds; k++ {
		kind := Kind(k)
		if kind.String() == "" {
			t.Errorf("kind %d has no name", k)
		}

		parsed, err := ParseKind(kind.String())
		if err != nil {
			t.Errorf("ParseKind(%q): %v", kind.String(), err)
		}
		if parsed != kind {
			t.Errorf("ParseKind(%q) = %d, want %d", kind.String(), parsed, kind)
		}
	}

	if _, err := ParseKind("rpm"); err == nil {
		t.Error("expected error for unknown kind name")
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("unexpected name for invalid kind: %s", got)
	}
	if Airspeed.Unit() != "cm/s" {
		t.Errorf("unexpected airspeed unit: %s", Airspeed.Unit())
	}
}
