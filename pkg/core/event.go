package core

// Event is a lifecycle notification emitted while a suite runs.
// The concrete types are FileNotFound, FileInvalid, FileCompleted and
// SuiteCompleted.
type Event interface {
	isEvent()
}

// FileNotFound is emitted for a requested path that does not exist.
type FileNotFound struct {
	Path string
}

// FileInvalid is emitted for a requested file that is not a test file.
type FileInvalid struct {
	Path string
}

// FileCompleted is emitted as soon as one file reaches a terminal state.
type FileCompleted struct {
	Outcome FileOutcome
}

// SuiteCompleted is emitted once, after every FileCompleted of the run.
type SuiteCompleted struct {
	Summary SuiteSummary
}

func (FileNotFound) isEvent()   {}
func (FileInvalid) isEvent()    {}
func (FileCompleted) isEvent()  {}
func (SuiteCompleted) isEvent() {}
