package types

import "errors"

// Failure taxonomy shared across the device. Callers match with errors.Is.
var (
	// ErrConfigInvalid: the persisted record is absent or was wiped.
	ErrConfigInvalid = errors.New("configuration record absent")
	// ErrStoreWrite: the persistence medium rejected a commit.
	ErrStoreWrite = errors.New("configuration store write failed")
	// ErrAssociationTimeout: the network never reached connected status.
	ErrAssociationTimeout = errors.New("network association timed out")
	// ErrMessageParse: a tally text frame was not a JSON object.
	ErrMessageParse = errors.New("malformed tally message")
	// ErrUnsupportedBinary: binary frames carry no tally data.
	ErrUnsupportedBinary = errors.New("binary frames are not supported")
)

// ErrorBody is the JSON error payload of the HTTP endpoints.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error codes carried in ErrorBody.Code.
const (
	CodeNotFound = "not_found"
	CodeInternal = "internal_error"
)

func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}}
}
