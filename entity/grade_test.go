package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeOf(t *testing.T) {
	tests := []struct {
		name       string
		elapsedMs  float64
		bufferGets float64
		want       Grade
	}{
		{"fast and cheap", 10, 100, GradeA},
		{"just under A thresholds", 99.9, 999, GradeA},
		{"elapsed pushes to B", 150, 100, GradeB},
		{"gets push to B", 10, 5_000, GradeB},
		{"both at C level", 800, 40_000, GradeC},
		{"worst metric wins", 10, 60_000, GradeD},
		{"elapsed at D", 4_000, 10, GradeD},
		{"over everything", 10_000, 500_000, GradeF},
		{"zero inputs", 0, 0, GradeA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GradeOf(tt.elapsedMs, tt.bufferGets))
		})
	}
}

// Totality: every input pair yields exactly one of the five grades.
func TestGradeOfTotal(t *testing.T) {
	valid := map[Grade]bool{GradeA: true, GradeB: true, GradeC: true, GradeD: true, GradeF: true}
	for _, elapsed := range []float64{0, 50, 99, 100, 499, 500, 999, 1_000, 4_999, 5_000, 1e9} {
		for _, gets := range []float64{0, 500, 999, 1_000, 9_999, 10_000, 49_999, 50_000, 99_999, 100_000, 1e9} {
			g := GradeOf(elapsed, gets)
			assert.True(t, valid[g], "grade(%v, %v) = %q", elapsed, gets, g)
		}
	}
}

// Monotonicity: increasing either metric while holding the other fixed never
// improves the grade.
func TestGradeOfMonotonic(t *testing.T) {
	severity := map[Grade]int{GradeA: 0, GradeB: 1, GradeC: 2, GradeD: 3, GradeF: 4}
	points := []float64{0, 50, 99, 150, 600, 1_500, 6_000, 1e6}

	for _, fixed := range points {
		prev := -1
		for _, elapsed := range points {
			s := severity[GradeOf(elapsed, fixed)]
			assert.GreaterOrEqual(t, s, prev, "elapsed=%v gets=%v", elapsed, fixed)
			prev = s
		}
		prev = -1
		for _, gets := range points {
			s := severity[GradeOf(fixed, gets)]
			assert.GreaterOrEqual(t, s, prev, "elapsed=%v gets=%v", fixed, gets)
			prev = s
		}
	}
}

func TestPerExec(t *testing.T) {
	assert.Equal(t, 5.0, PerExec(50, 10))
	assert.Equal(t, 50.0, PerExec(50, 1))

	// Zero executions substitute 1, so a never-executed cursor with zero
	// counters reports zero, not NaN.
	assert.Equal(t, 0.0, PerExec(0, 0))
	assert.Equal(t, 7.0, PerExec(7, 0))
	assert.Equal(t, 7.0, PerExec(7, -3))
}

func TestRecordDerivedFields(t *testing.T) {
	r := &PerformanceRecord{ElapsedMs: 1_000, BufferGets: 20_000, Executions: 10}
	assert.Equal(t, 100.0, r.ElapsedMsPerExec())
	assert.Equal(t, 2_000.0, r.BufferGetsPerExec())

	r.Regrade()
	assert.Equal(t, GradeB, r.Grade)
}
