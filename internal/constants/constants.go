package constants

import "time"

const (
	RetryMaxAttempts   = 3
	RetryBaseDelay     = 500 * time.Millisecond
	RetryMaxDelay      = 10 * time.Second
	RetryJitterPercent = 20
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RunTimeout         = 2 * time.Hour
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	DefaultArchiveMonths = 1
	DefaultFetchWorkers  = 1
)

const (
	ShutdownTimeout = 15 * time.Second
)
