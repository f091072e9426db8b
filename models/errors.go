package models

import "errors"

var (
	ErrEmptyProductName      = errors.New("product name is required")
	ErrInvalidTargetPrice    = errors.New("target price must be positive")
	ErrInvalidReferencePrice = errors.New("reference price must be positive")
	ErrInvalidProductURL     = errors.New("product url must be an absolute http(s) url")
	ErrProductNotFound       = errors.New("product not found")
)
