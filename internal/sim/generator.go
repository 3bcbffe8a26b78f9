package sim

import "math/rand"

// Generator produces synthetic branch traces for predictor experiments. All
// randomness comes from a seeded source, so a trace is reproducible from its
// seed. Sequence numbers run across everything one generator emits, so
// multiple workloads can be concatenated into a single interleaved trace.
type Generator struct {
	rng *rand.Rand
	seq uint64
}

// NewGenerator creates a generator with a deterministic seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) emit(tag string, outcome bool) BranchRecord {
	r := BranchRecord{Seq: g.seq, Tag: tag, Outcome: outcome}
	g.seq++
	return r
}

// Loop emits the branch stream of a counted loop condition: taken for
// iterations observations, then not-taken once. The pattern is low entropy
// and a history-based predictor should learn it almost perfectly.
func (g *Generator) Loop(tag string, iterations int) []BranchRecord {
	records := make([]BranchRecord, 0, iterations+1)
	for i := 0; i <= iterations; i++ {
		records = append(records, g.emit(tag, i < iterations))
	}
	return records
}

// Random emits count branches taken with the given probability. At bias 0.5
// the stream carries no learnable signal and accuracy should hover near
// chance.
func (g *Generator) Random(tag string, count int, bias float64) []BranchRecord {
	records := make([]BranchRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, g.emit(tag, g.rng.Float64() < bias))
	}
	return records
}

// Alternating emits count branches flipping direction every period
// observations, a pattern the global history resolves once it is at least
// period bits long.
func (g *Generator) Alternating(tag string, period, count int) []BranchRecord {
	records := make([]BranchRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, g.emit(tag, (i/period)%2 == 0))
	}
	return records
}

// Driver emits the default workload: a counted loop whose body contains a
// fair coin-flip branch, interleaved the way the two sites execute.
//
//	for seq: loop taken, coin, loop taken, coin, ..., loop not-taken
func (g *Generator) Driver(iterations int) []BranchRecord {
	records := make([]BranchRecord, 0, 2*iterations+1)
	for i := 0; i < iterations; i++ {
		records = append(records, g.emit("condition", true))
		records = append(records, g.emit("random", g.rng.Float64() > 0.5))
	}
	records = append(records, g.emit("condition", false))
	return records
}
