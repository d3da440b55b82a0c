package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrNoTrainingData        = errors.New("no labelled matches to train on")
	ErrNoModel               = errors.New("no trained model available")
)
