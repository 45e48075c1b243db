package constants

// JobState is the canonical state for rows in the jobs table.
type JobState string

// Stable values (store these exact strings in DB).
const (
	StateCreated     JobState = "CREATED"     // accepted, nothing run yet
	StateExtracting  JobState = "EXTRACTING"  // extraction claimed or awaiting retry
	StateExtracted   JobState = "EXTRACTED"   // stage 1 completed (text extracted)
	StateSummarizing JobState = "SUMMARIZING" // summarization claimed or awaiting retry
	StateSucceeded   JobState = "SUCCEEDED"   // terminal success
	StateFailed      JobState = "FAILED"      // terminal failure
)

// Terminal reports whether a job in this state is inert.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// transitions lists the legal forward edges. Retries stay in place, so a
// non-terminal state may also transition to itself.
var transitions = map[JobState][]JobState{
	StateCreated:     {StateExtracting},
	StateExtracting:  {StateExtracted, StateFailed},
	StateExtracted:   {StateSummarizing},
	StateSummarizing: {StateSucceeded, StateFailed},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to JobState) bool {
	if from == to {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
