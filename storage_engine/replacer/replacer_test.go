package replacer

import "testing"

// TestClockReplacerScenario mirrors the S1 scenario from the core spec:
// pool of 7 frames, a scripted sequence of unpins/pins/victims, checking
// both the selection order and the running size.
func TestClockReplacerScenario(t *testing.T) {
	r := NewClockReplacer(7)

	for _, f := range []int{1, 2, 3, 4, 5, 6, 1} {
		r.Unpin(f)
	}

	if got := r.Size(); got != 6 {
		t.Fatalf("size after unpins = %d, want 6", got)
	}

	wantOrder := []int{1, 2, 3, 4}
	for _, want := range wantOrder {
		got, ok := r.Victim()
		if !ok {
			t.Fatalf("Victim() returned no candidate, want %d", want)
		}
		if got != want {
			t.Fatalf("Victim() = %d, want %d", got, want)
		}
	}

	r.Pin(3)
	r.Pin(4) // no-op, 4 already out of the tracked set
	r.Unpin(4)

	wantOrder2 := []int{5, 6, 4}
	for _, want := range wantOrder2 {
		got, ok := r.Victim()
		if !ok {
			t.Fatalf("Victim() returned no candidate, want %d", want)
		}
		if got != want {
			t.Fatalf("Victim() = %d, want %d", got, want)
		}
	}

	if got := r.Size(); got != 0 {
		t.Fatalf("final size = %d, want 0", got)
	}
}

func TestClockReplacerEmptyVictim(t *testing.T) {
	r := NewClockReplacer(3)
	if _, ok := r.Victim(); ok {
		t.Fatal("Victim() on empty replacer should return false")
	}
}

func TestClockReplacerSecondChance(t *testing.T) {
	r := NewClockReplacer(2)
	r.Unpin(0)
	r.Unpin(1)

	// Both frames enter with their ref bit set: the first pass clears both
	// bits and the second pass evicts frame 0, leaving frame 1 tracked with
	// its bit clear.
	got, ok := r.Victim()
	if !ok || got != 0 {
		t.Fatalf("Victim() = (%d, %v), want (0, true)", got, ok)
	}

	// Touch frame 0 again so its ref bit is set when the sweep reaches it,
	// while frame 1's bit stays clear.
	r.Unpin(0)

	got, ok = r.Victim()
	if !ok || got != 1 {
		t.Fatalf("Victim() = (%d, %v), want (1, true) — frame 0 should get a second chance", got, ok)
	}

	got, ok = r.Victim()
	if !ok || got != 0 {
		t.Fatalf("Victim() = (%d, %v), want (0, true)", got, ok)
	}
}

func TestClockReplacerInvalidFrameIsIgnored(t *testing.T) {
	r := NewClockReplacer(2)
	r.Unpin(-1)
	r.Unpin(5)
	r.Pin(5)

	if got := r.Size(); got != 0 {
		t.Fatalf("size = %d, want 0 — out-of-range frame ids must be ignored", got)
	}
}
