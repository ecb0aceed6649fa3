package domain

import "time"

type IngestLimits struct {
	MaxFileSize  int64
	MaxBulkFiles int
}

type ClassificationLimits struct {
	ProcessTimeout  time.Duration
	ClassifyTimeout time.Duration
	WriteTimeout    time.Duration
}

type SweepLimits struct {
	ExpiringSoonDays int
	StaleAfter       time.Duration
	StaleBatchSize   int
}
