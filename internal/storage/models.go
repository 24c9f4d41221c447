package storage

import "time"

// ExecutionStat is one execution outcome persisted for usage statistics.
type ExecutionStat struct {
	ID         string
	UserID     string
	Language   string
	Status     string
	Success    bool
	DurationMS int64
	MemoryKB   int64
	CodeHash   string
	Cached     bool
	CreatedAt  time.Time
}
