package api

import (
	"errors"
	"net/http"

	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/picker"
	"github.com/heimdex/heimdex-trim/internal/trim"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNoSource           = "NO_SOURCE"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeConflict           = "CONFLICT"
	CodeTrimFailed         = "TRIM_FAILED"
	CodeTrimExecutionError = "TRIM_EXECUTION_ERROR"
	CodeStorageError       = "STORAGE_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnresolvable       = "UNRESOLVABLE_CLIPS"
)

// writeDomainError maps errors from the picker, workflow, trim and library
// packages onto HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	WriteError(w, status, err.Error(), code)
}

func classify(err error) (int, string) {
	var (
		pf *trim.ProcessFailedError
		ee *trim.ExecutionError
		se *library.StorageError
	)
	switch {
	case errors.Is(err, picker.ErrNoSourceSelected),
		errors.Is(err, trim.ErrNoSource),
		errors.Is(err, library.ErrNoSource):
		return http.StatusBadRequest, CodeNoSource
	case errors.Is(err, picker.ErrPermissionDenied),
		errors.Is(err, picker.ErrOutsideLibrary):
		return http.StatusForbidden, CodePermissionDenied
	case errors.Is(err, picker.ErrNotFound),
		errors.Is(err, library.ErrNotFound),
		errors.Is(err, workflow.ErrUnknownFrame):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, workflow.ErrTrimInProgress),
		errors.Is(err, workflow.ErrBusy),
		errors.Is(err, workflow.ErrNotReady),
		errors.Is(err, workflow.ErrNoSession),
		errors.Is(err, workflow.ErrNothingToSave),
		errors.Is(err, workflow.ErrSessionReset):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, picker.ErrNotVideo),
		errors.Is(err, trim.ErrInvalidRange),
		errors.Is(err, workflow.ErrNoCommittedRange),
		errors.Is(err, workflow.ErrTitleRequired),
		errors.Is(err, workflow.ErrDescriptionRequired):
		return http.StatusBadRequest, CodeBadRequest
	case errors.As(err, &pf):
		return http.StatusUnprocessableEntity, CodeTrimFailed
	case errors.As(err, &ee):
		return http.StatusInternalServerError, CodeTrimExecutionError
	case errors.As(err, &se):
		return http.StatusInternalServerError, CodeStorageError
	}
	return http.StatusInternalServerError, CodeInternal
}
