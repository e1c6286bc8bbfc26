package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeTriageError = "TRIAGE_ERROR"
	CodeAPIError    = "API_ERROR"
	CodeValidation  = "VALIDATION_ERROR"
	CodeCache       = "CACHE_ERROR"
	CodeService     = "SERVICE_ERROR"
)

type BaseError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BaseError) Unwrap() error {
	return e.Cause
}

func NewBaseError(message, code string, statusCode int, context map[string]any) *BaseError {
	return &BaseError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *BaseError) WithCause(cause error) *BaseError {
	e.Cause = cause
	return e
}

// Kind identifies why a triage request was aborted.
type Kind string

const (
	KindEmptyQuery                Kind = "EMPTY_QUERY"
	KindTranscription             Kind = "TRANSCRIPTION_ERROR"
	KindClassificationUnavailable Kind = "CLASSIFICATION_UNAVAILABLE"
	KindModelUnavailable          Kind = "MODEL_UNAVAILABLE"
	KindMalformedModelOutput      Kind = "MALFORMED_MODEL_OUTPUT"
)

// Stage names the pipeline step that produced a TriageError.
type Stage string

const (
	StageReceived       Stage = "received"
	StageTranscribe     Stage = "transcribe"
	StageLocalClassify  Stage = "local_classify"
	StageRemoteClassify Stage = "remote_classify"
	StageGenerateAdvice Stage = "generate_advice"
)

var kindStatus = map[Kind]int{
	KindEmptyQuery:                400,
	KindTranscription:             422,
	KindClassificationUnavailable: 503,
	KindModelUnavailable:          503,
	KindMalformedModelOutput:      502,
}

// TriageError is the only error type the triage pipeline returns to its caller.
type TriageError struct {
	*BaseError
	Kind  Kind
	Stage Stage
}

func NewTriageError(kind Kind, stage Stage, message string, cause error) *TriageError {
	status, ok := kindStatus[kind]
	if !ok {
		status = 500
	}
	base := NewBaseError(message, CodeTriageError, status, map[string]any{
		"kind":  string(kind),
		"stage": string(stage),
	}).WithCause(cause)
	return &TriageError{BaseError: base, Kind: kind, Stage: stage}
}

func NewEmptyQueryError() *TriageError {
	return NewTriageError(KindEmptyQuery, StageReceived, "query text or audio is required", nil)
}

func NewTranscriptionError(message string, cause error) *TriageError {
	return NewTriageError(KindTranscription, StageTranscribe, message, cause)
}

func NewClassificationUnavailableError(category string, cause error) *TriageError {
	te := NewTriageError(KindClassificationUnavailable, StageLocalClassify,
		fmt.Sprintf("%s classifier unavailable", category), cause)
	te.Context["category"] = category
	return te
}

func NewModelUnavailableError(stage Stage, cause error) *TriageError {
	return NewTriageError(KindModelUnavailable, stage, "language model unavailable", cause)
}

func NewMalformedModelOutputError(message string, cause error) *TriageError {
	return NewTriageError(KindMalformedModelOutput, StageRemoteClassify, message, cause)
}

// AsTriageError extracts a TriageError from anywhere in err's chain.
func AsTriageError(err error) (*TriageError, bool) {
	var te *TriageError
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf returns the triage kind of err, or "" when err is not a TriageError.
func KindOf(err error) Kind {
	if te, ok := AsTriageError(err); ok {
		return te.Kind
	}
	return ""
}

type APIError struct {
	*BaseError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{BaseError: NewBaseError(message, CodeAPIError, statusCode, context)}
}

type ValidationError struct {
	*BaseError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: NewBaseError(message, CodeValidation, 400, map[string]any{
			"field": field,
			"value": value,
		}),
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*BaseError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		BaseError: NewBaseError(message, CodeCache, 500, map[string]any{
			"operation": operation,
			"key":       key,
		}).WithCause(cause),
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*BaseError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		BaseError: NewBaseError(message, CodeService, 500, map[string]any{
			"service":   service,
			"operation": operation,
		}).WithCause(cause),
		Service:   service,
		Operation: operation,
	}
}
