package port

// JobReporter receives progress of a long-running job.
type JobReporter interface {
	// Step reports that one unit of work finished. failed marks a unit that
	// was skipped because of an error.
	Step(item string, failed bool)

	// Finish marks the job complete with the produced resource ID, or failed
	// when err is not nil.
	Finish(resultID string, err error)
}
