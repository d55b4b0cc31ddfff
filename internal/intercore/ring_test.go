package intercore

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestRing_DropNewestWhenFull(t *testing.T) {
	r, err := NewRing[int](4)
	if err != nil {
		t.Fatalf("Failed to create ring: %v", err)
	}

	for i := 1; i <= 4; i++ {
		if !r.Push(i) {
			t.Fatalf("Push(%d) rejected before ring was full", i)
		}
	}

	if !r.IsFull() {
		t.Error("Ring should be full")
	}
	if r.Push(5) {
		t.Error("Push on a full ring must be rejected")
	}
	if size := r.Len(); size != 4 {
		t.Errorf("Expected ring length 4, got %d", size)
	}

	var got []int
	for {
		v, ok := r.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}

	expected := []int{1, 2, 3, 4}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d entries, got %d: %v", len(expected), len(got), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Entry %d: expected %d, got %d", i, expected[i], got[i])
		}
	}
}

func TestRing_FIFOAcrossWrap(t *testing.T) {
	r, err := NewRing[int](3)
	if err != nil {
		t.Fatalf("Failed to create ring: %v", err)
	}

	next := 0
	expect := 0
	for round := 0; round < 100; round++ {
		for i := 0; i < 2; i++ {
			if !r.Push(next) {
				t.Fatalf("round %d: unexpected full ring", round)
			}
			next++
		}
		for i := 0; i < 2; i++ {
			v, ok := r.Pop()
			if !ok {
				t.Fatalf("round %d: unexpected empty ring", round)
			}
			if v != expect {
				t.Fatalf("round %d: expected %d, got %d", round, expect, v)
			}
			expect++
		}
	}
}

func TestRing_EdgeCases(t *testing.T) {
	r, err := NewRing[string](1)
	if err != nil {
		t.Fatalf("Failed to create ring: %v", err)
	}

	if _, ok := r.Pop(); ok {
		t.Error("Pop on empty ring should report false")
	}
	if r.IsFull() {
		t.Error("Empty ring should not be full")
	}
	if r.Len() != 0 {
		t.Error("Empty ring should have length 0")
	}
	if r.Cap() != 1 {
		t.Errorf("Expected capacity 1, got %d", r.Cap())
	}

	testCases := []struct {
		name     string
		capacity int
	}{
		{"zero capacity", 0},
		{"negative capacity", -1},
		{"capacity above maximum", MaxCapacity + 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRing[int](tc.capacity); err == nil {
				t.Error("Expected error for invalid capacity")
			}
		})
	}
}

func TestRing_ConcurrentProducerConsumer(t *testing.T) {
	r, err := NewRing[int](8)
	if err != nil {
		t.Fatalf("Failed to create ring: %v", err)
	}

	const total = 20_000

	var wg sync.WaitGroup
	var producerDone atomic.Bool
	var accepted, received []int

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer producerDone.Store(true)
		for i := 0; i < total; i++ {
			if r.Push(i) {
				accepted = append(accepted, i)
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			finished := producerDone.Load()
			v, ok := r.Pop()
			if ok {
				received = append(received, v)
				continue
			}
			if finished {
				return
			}
		}
	}()

	wg.Wait()

	if len(accepted) == 0 {
		t.Fatal("Producer never got an entry through")
	}
	if len(received) != len(accepted) {
		t.Fatalf("Expected %d received entries, got %d", len(accepted), len(received))
	}
	for i := range accepted {
		if received[i] != accepted[i] {
			t.Fatalf("Entry %d: expected %d, got %d", i, accepted[i], received[i])
		}
	}
}
