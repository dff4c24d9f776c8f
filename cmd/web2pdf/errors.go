package main

import "errors"

// Sentinel errors for CLI operations.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrInvalidJSON = errors.New("invalid JSON argument")
	ErrReadInput   = errors.New("failed to read input")
	ErrWritePDF    = errors.New("failed to write PDF")
	ErrServe       = errors.New("server failed")
)
