package database

type RunRepository interface {
	Start(run Run) error
	Finish(id string, status string, message string, result RunResult) error

	GetRun(id string) (*Run, error)
	GetRecentRuns(limit int) ([]Run, error)
	GetLatestCompletedRun() (*Run, error)
}
