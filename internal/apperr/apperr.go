// Package apperr implements the closed error taxonomy shared by the
// tool-call RPC surface and the HTTP surface. Every business-rule
// violation, validation failure, or not-found condition surfaces as an
// *Error carrying one of the codes below plus a recovery hint, mirroring
// the teacher's mcp.RPCError but generalised into the document envelope
// the specification requires (status/error_code/message/recovery_strategy/details).
package apperr

import "fmt"

// Code is one value from the closed error-code taxonomy.
type Code string

const (
	AuthRequired              Code = "AUTH_REQUIRED"
	AuthFailed                Code = "AUTH_FAILED"
	UnknownTool               Code = "UNKNOWN_TOOL"
	InvalidArguments          Code = "INVALID_ARGUMENTS"
	InvalidOperation          Code = "INVALID_OPERATION"
	TemplateNotFound          Code = "TEMPLATE_NOT_FOUND"
	FragmentNotFound          Code = "FRAGMENT_NOT_FOUND"
	SessionNotFound           Code = "SESSION_NOT_FOUND"
	SessionNotReady           Code = "SESSION_NOT_READY"
	RenderFailed              Code = "RENDER_FAILED"
	InvalidImageURL           Code = "INVALID_IMAGE_URL"
	ImageURLNotAccessible     Code = "IMAGE_URL_NOT_ACCESSIBLE"
	InvalidImageContentType   Code = "INVALID_IMAGE_CONTENT_TYPE"
	ImageTooLarge             Code = "IMAGE_TOO_LARGE"
	ImageURLTimeout           Code = "IMAGE_URL_TIMEOUT"
	ImageValidationError      Code = "IMAGE_VALIDATION_ERROR"
	InvalidGraphParams        Code = "INVALID_GRAPH_PARAMS"
	GraphValidationError      Code = "GRAPH_VALIDATION_ERROR"
	RenderError               Code = "RENDER_ERROR"
	PlotStorageNotInitialized Code = "PLOT_STORAGE_NOT_INITIALIZED"
	ImageNotFound             Code = "IMAGE_NOT_FOUND"
	AccessDenied              Code = "ACCESS_DENIED"
	InvalidNumberFormat       Code = "INVALID_NUMBER_FORMAT"
	InvalidColor              Code = "INVALID_COLOR"
	InvalidTableData          Code = "INVALID_TABLE_DATA"
	InconsistentColumns       Code = "INCONSISTENT_COLUMNS"
	InvalidHighlight          Code = "INVALID_HIGHLIGHT"
	InvalidSort               Code = "INVALID_SORT"
	InvalidColumnWidth        Code = "INVALID_COLUMN_WIDTH"
	InvalidWidth              Code = "INVALID_WIDTH"
	InvalidAlignment          Code = "INVALID_ALIGNMENT"
	InvalidBorderStyle        Code = "INVALID_BORDER_STYLE"
	UnexpectedError           Code = "UNEXPECTED_ERROR"
)

// Error is a structured failure carrying the information the envelope
// needs: a closed code, a human message, a recovery hint, and optional
// machine-readable details.
type Error struct {
	Code     Code
	Message  string
	Recovery string
	Details  map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an Error with the given code, message, and recovery hint.
func New(code Code, message, recovery string) *Error {
	return &Error{Code: code, Message: message, Recovery: recovery}
}

// WithDetails attaches machine-readable details and returns the receiver
// for chaining at the call site.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Unexpected wraps an unanticipated collaborator error. The underlying
// type name travels in Details; the full error is left for the logger,
// never for the response, per the information-leak policy.
func Unexpected(err error) *Error {
	return &Error{
		Code:     UnexpectedError,
		Message:  "an unexpected error occurred",
		Recovery: "retry the request; if it persists, contact an operator with the request time",
		Details:  map[string]any{"underlying_type": fmt.Sprintf("%T", err)},
	}
}

// As extracts an *Error from err if it is one, wrapping it as
// UnexpectedError otherwise.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Unexpected(err)
}
