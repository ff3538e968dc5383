package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo: failed to connect")
	ErrEmptyConnectionURL     = errors.New("mongo: empty connection URL, use MONGODB_URL env var")
	ErrHealthcheckFailed      = errors.New("mongo: healthcheck failed")
)
