package catalog

import "errors"

var (
	ErrNameRequired    = errors.New("service name is required")
	ErrInvalidPrice    = errors.New("price must be greater than 0")
	ErrInvalidDuration = errors.New("duration must be greater than 0")
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceInUse    = errors.New("service has appointments and cannot be deleted")
	ErrImagesDisabled  = errors.New("service image storage is not configured")
	ErrUnsupportedType = errors.New("unsupported image type")
)
