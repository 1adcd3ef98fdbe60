package recovery

import "testing"

func TestBudget_Monotonic(t *testing.T) {
	bt := NewBudgetTracker(3)

	if n := bt.Attempts("engineer", "t1", "timeout"); n != 0 {
		t.Fatalf("unseen triple should start at 0, got %d", n)
	}

	prev := 0
	for i := 0; i < 5; i++ {
		bt.RecordAttempt("engineer", "t1", "timeout")
		n := bt.Attempts("engineer", "t1", "timeout")
		if n < prev {
			t.Fatalf("attempts decreased: %d -> %d", prev, n)
		}
		prev = n
	}
	if prev != 5 {
		t.Errorf("expected 5 attempts, got %d", prev)
	}
}

func TestBudget_Reset(t *testing.T) {
	bt := NewBudgetTracker(3)

	bt.RecordAttempt("engineer", "t1", "timeout")
	bt.RecordAttempt("engineer", "t1", "timeout")
	bt.Reset("engineer", "t1", "timeout")

	if n := bt.Attempts("engineer", "t1", "timeout"); n != 0 {
		t.Errorf("expected 0 after reset, got %d", n)
	}
}

func TestBudget_Exhausted(t *testing.T) {
	bt := NewBudgetTracker(3)

	for i := 0; i < 2; i++ {
		bt.RecordAttempt("engineer", "t1", "timeout")
	}
	if bt.Exhausted("engineer", "t1", "timeout") {
		t.Error("2 of 3 attempts should not be exhausted")
	}

	bt.RecordAttempt("engineer", "t1", "timeout")
	if !bt.Exhausted("engineer", "t1", "timeout") {
		t.Error("3 of 3 attempts should be exhausted")
	}

	// Triples are independent
	if bt.Exhausted("engineer", "t2", "timeout") {
		t.Error("different task should have its own budget")
	}
}

func TestBudget_ActiveCounts(t *testing.T) {
	bt := NewBudgetTracker(3)

	bt.RecordAttempt("engineer", "t1", "timeout")
	bt.RecordAttempt("engineer", "t1", "timeout")
	bt.RecordAttempt("tester", "t9", "connection")
	bt.Reset("tester", "t9", "connection")

	counts := bt.ActiveCounts()
	if len(counts) != 1 {
		t.Fatalf("expected 1 active counter, got %d", len(counts))
	}
	if counts["engineer/t1/timeout"] != 2 {
		t.Errorf("expected engineer/t1/timeout = 2, got %v", counts)
	}
}
