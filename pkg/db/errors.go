package db

import "errors"

var (
	ErrEmptyPath                = errors.New("db: database path is empty")
	ErrFailedToOpenDBConnection = errors.New("db: failed to open database connection")
	ErrHealthcheckFailed        = errors.New("db: healthcheck failed")
)
