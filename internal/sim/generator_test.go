package sim

import "testing"

func TestGenerator_SeedDeterminism(t *testing.T) {
	t.Parallel()

	a := NewGenerator(42).Random("coin", 500, 0.5)
	b := NewGenerator(42).Random("coin", 500, 0.5)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("record %d differs across same-seed generators: %+v vs %+v", i, a[i], b[i])
		}
	}

	c := NewGenerator(43).Random("coin", 500, 0.5)
	same := true
	for i := range a {
		if a[i].Outcome != c[i].Outcome {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical outcome streams")
	}
}

func TestGenerator_LoopShape(t *testing.T) {
	t.Parallel()

	records := NewGenerator(0).Loop("loop", 100)
	if len(records) != 101 {
		t.Fatalf("len = %d, want 101", len(records))
	}
	for i := 0; i < 100; i++ {
		if !records[i].Outcome {
			t.Errorf("record %d: loop condition not taken mid-loop", i)
		}
	}
	if records[100].Outcome {
		t.Error("exit record taken, want not-taken")
	}
}

func TestGenerator_SequenceNumbersRunAcrossWorkloads(t *testing.T) {
	t.Parallel()

	g := NewGenerator(0)
	first := g.Loop("a", 10)
	second := g.Alternating("b", 2, 10)

	all := append(append([]BranchRecord(nil), first...), second...)
	for i, r := range all {
		if r.Seq != uint64(i) {
			t.Fatalf("record %d has seq %d", i, r.Seq)
		}
	}
}

func TestGenerator_AlternatingPeriod(t *testing.T) {
	t.Parallel()

	records := NewGenerator(0).Alternating("alt", 3, 12)
	want := []bool{true, true, true, false, false, false, true, true, true, false, false, false}
	for i, r := range records {
		if r.Outcome != want[i] {
			t.Errorf("record %d = %v, want %v", i, r.Outcome, want[i])
		}
	}
}

func TestGenerator_DriverShape(t *testing.T) {
	t.Parallel()

	records := NewGenerator(7).Driver(1000)
	if len(records) != 2001 {
		t.Fatalf("len = %d, want 2001", len(records))
	}

	var taken int
	for i, r := range records[:2000] {
		switch {
		case i%2 == 0:
			if r.Tag != "condition" || !r.Outcome {
				t.Fatalf("record %d = %+v, want taken condition", i, r)
			}
		default:
			if r.Tag != "random" {
				t.Fatalf("record %d = %+v, want random", i, r)
			}
			if r.Outcome {
				taken++
			}
		}
	}

	last := records[2000]
	if last.Tag != "condition" || last.Outcome {
		t.Errorf("final record = %+v, want not-taken condition", last)
	}

	// A fair coin over 1000 flips stays well inside these bounds.
	if taken < 400 || taken > 600 {
		t.Errorf("random branch taken %d of 1000", taken)
	}
}
