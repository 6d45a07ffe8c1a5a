package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrClassification = errors.New("classification failed")
	ErrExtraction     = errors.New("parameter extraction failed")
	ErrExecution      = errors.New("execution failed")
	ErrRouting        = errors.New("no route for intent")
)
