package services

import "errors"

// Calculation service errors
var (
	ErrCalculationRunning  = errors.New("calculation already running")
	ErrNoResults           = errors.New("no calculation results available")
	ErrCompositionNotFound = errors.New("composition not found")
	ErrItemNotFound        = errors.New("budget item not found")
	ErrBudgetMissing       = errors.New("budget sheet not found")
)
