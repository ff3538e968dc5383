package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")

	// ErrReadingFile is returned when a configuration file cannot be read or decoded.
	ErrReadingFile = errors.New("config: failed to read configuration file")

	// ErrInvalidConfig is returned when the loaded configuration fails struct validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrNilPointer is returned when a nil pointer is provided to Load.
	ErrNilPointer = errors.New("config: nil pointer provided to loader")
)
