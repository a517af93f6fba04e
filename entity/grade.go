package entity

// Grade is the ordinal A-F classification of a statement's observed
// performance.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// gradeLadder holds the joint thresholds in ascending severity. A record
// earns a level only when BOTH metrics fall under that level's thresholds,
// so the worse of the two metrics decides the grade.
var gradeLadder = []struct {
	grade         Grade
	maxElapsedMs  float64
	maxBufferGets float64
}{
	{GradeA, 100, 1_000},
	{GradeB, 500, 10_000},
	{GradeC, 1_000, 50_000},
	{GradeD, 5_000, 100_000},
}

// GradeOf grades a statement by its per-execution elapsed time and buffer
// gets. The dashboard recomputes the same ladder client-side over the raw
// numbers, so these constants must stay identical between the collection
// path and the history-query path.
func GradeOf(elapsedMsPerExec, bufferGetsPerExec float64) Grade {
	for _, l := range gradeLadder {
		if elapsedMsPerExec < l.maxElapsedMs && bufferGetsPerExec < l.maxBufferGets {
			return l.grade
		}
	}
	return GradeF
}

// PerExec divides a cumulative counter by the execution count, substituting 1
// for zero executions so a never-executed cursor reports zero averages
// instead of dividing by zero.
func PerExec(total float64, executions int64) float64 {
	if executions < 1 {
		executions = 1
	}
	return total / float64(executions)
}
