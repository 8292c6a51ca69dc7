// Package errors provides the standardized error taxonomy for the importer.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCSVFileNotFound ErrorCode = "CSV_FILE_NOT_FOUND"
	ErrCodeCSVParseFailed  ErrorCode = "CSV_PARSE_FAILED"

	ErrCodeConfigInvalid      ErrorCode = "CONFIG_INVALID"
	ErrCodeDispatcherNotFound ErrorCode = "DISPATCHER_NOT_FOUND"
	ErrCodeWorkerNotFound     ErrorCode = "WORKER_NOT_FOUND"

	ErrCodeValidationFailed ErrorCode = "ASSIGNMENT_VALIDATION_FAILED"

	ErrCodeAuthenticationFailed   ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeProjectDataInvalid     ErrorCode = "PROJECT_DATA_INVALID"
	ErrCodeRemoteServiceError     ErrorCode = "REMOTE_SERVICE_ERROR"
	ErrCodeAttachmentUploadFailed ErrorCode = "ATTACHMENT_UPLOAD_FAILED"
	ErrCodeSubmissionIncomplete   ErrorCode = "SUBMISSION_INCOMPLETE"
)

// StandardError represents a structured application error. Core packages
// return these instead of logging; the orchestration boundary decides how
// to report them.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewCSVFileNotFoundError reports a CSV file that could not be opened.
func NewCSVFileNotFoundError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCSVFileNotFound,
		Message:   "CSV file could not be opened",
		Details:   err.Error(),
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewParseError reports a malformed value in the CSV, naming the offending
// row (1-based, excluding the header) and column.
func NewParseError(row int, column, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCSVParseFailed,
		Message:   fmt.Sprintf("Invalid value in column %q", column),
		Details:   details,
		Metadata:  map[string]interface{}{"row": row, "column": column},
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigInvalidError reports unusable run configuration.
func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatcherNotFoundError reports that the acting user has no dispatcher
// record in the project. The run cannot proceed without a dispatcher
// identity.
func NewDispatcherNotFoundError(username string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatcherNotFound,
		Message:   fmt.Sprintf("%s is not a dispatcher in this project", username),
		Metadata:  map[string]interface{}{"username": username},
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkerNotFoundError reports a worker username with no matching record.
// The whole run aborts; no partial submission happens.
func NewWorkerNotFoundError(username string) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkerNotFound,
		Message:   fmt.Sprintf("%s is not a worker in this project", username),
		Metadata:  map[string]interface{}{"username": username},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports the first batch-validation rule violation.
// rule identifies the failed check, row the offending record.
func NewValidationError(row int, rule, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   fmt.Sprintf("Assignment failed validation rule %q", rule),
		Details:   details,
		Metadata:  map[string]interface{}{"row": row, "rule": rule},
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError reports a failed token request.
func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "Authentication failed",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewProjectDataInvalidError reports a project item whose data document does
// not describe the three expected layers.
func NewProjectDataInvalidError(projectID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProjectDataInvalid,
		Message:   "Project data document is not a workforce project",
		Details:   details,
		Metadata:  map[string]interface{}{"projectId": projectID},
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteServiceError reports a failed call to the feature service.
func NewRemoteServiceError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteServiceError,
		Message:   fmt.Sprintf("Feature service operation %q failed", operation),
		Details:   err.Error(),
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
	}
}

// NewAttachmentUploadFailedError reports a failed attachment upload. The
// record is already inserted at this point, so the object id is carried for
// manual reconciliation.
func NewAttachmentUploadFailedError(objectID int64, path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttachmentUploadFailed,
		Message:   "Attachment upload failed",
		Details:   err.Error(),
		Metadata:  map[string]interface{}{"objectId": objectID, "path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionIncompleteError reports a bulk insert whose response did not
// cover every submitted record, or carried a per-record error.
func NewSubmissionIncompleteError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionIncomplete,
		Message:   "Bulk insert did not succeed for every record",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a StandardError from err, wrapping foreign errors
// under a generic code so boundary logging always has a code to report.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// HasCode reports whether err is a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return errors.As(err, &stdErr) && stdErr.Code == code
}
