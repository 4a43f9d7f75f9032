package domain

import "time"

// Checkpoint is a daily digest over every lineage's chain head. It bounds how
// far back a tamper-detection scan must replay: only lineages active since the
// last valid checkpoint need full verification.
type Checkpoint struct {
	// Day is the UTC calendar day the checkpoint covers, at most one per day.
	Day          time.Time
	HeadHash     string
	LineageCount int64
	CreatedAt    time.Time
}
