package assets

import "errors"

var (
	ErrInvalidConfig      = errors.New("assets: invalid configuration")
	ErrFailedToLoadConfig = errors.New("assets: failed to load AWS config")
	ErrInvalidAssetName   = errors.New("assets: invalid asset name")
	ErrAssetNotFound      = errors.New("assets: asset not found")
	ErrAssetTooLarge      = errors.New("assets: asset exceeds maximum size")
	ErrBucketNotFound     = errors.New("assets: bucket not found")
	ErrAccessDenied       = errors.New("assets: access denied")
	ErrFailedToReadAsset  = errors.New("assets: failed to read asset")
)
