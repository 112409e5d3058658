/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/wharf/allocator"
	redlock "github.com/blnkfinance/wharf/internal/lock"
	"github.com/blnkfinance/wharf/model"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrShortage       ErrorCode = "SHORTAGE"
	ErrUnprocessable  ErrorCode = "UNPROCESSABLE"
	ErrIntegrity      ErrorCode = "INTEGRITY_VIOLATION"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromDomain maps an engine error onto an APIError. Unknown errors become INTERNAL_SERVER_ERROR.
func FromDomain(err error) APIError {
	var (
		apiErr      APIError
		shortage    *allocator.ShortageError
		integrity   *model.IntegrityError
		approval    *model.InsufficientApprovalError
		destination *model.DestinationError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &shortage):
		return APIError{Code: ErrShortage, Message: "shortage", Details: shortage.Lines}
	case errors.As(err, &integrity):
		return NewAPIError(ErrIntegrity, integrity.Error(), integrity)
	case errors.As(err, &approval):
		return APIError{Code: ErrUnprocessable, Message: approval.Error()}
	case errors.As(err, &destination):
		return APIError{Code: ErrUnprocessable, Message: destination.Error(), Details: destination.Suggestions}
	case errors.Is(err, model.ErrNotFound):
		return APIError{Code: ErrNotFound, Message: err.Error()}
	case errors.Is(err, model.ErrJobNotCancellable),
		errors.Is(err, model.ErrDuplicateActiveJob),
		errors.Is(err, model.ErrAlreadyExists),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrInsufficientAvailability),
		errors.Is(err, redlock.ErrLockHeld):
		return APIError{Code: ErrConflict, Message: err.Error()}
	case errors.Is(err, model.ErrDestinationInvalid),
		errors.Is(err, model.ErrNoBoxesLinked),
		errors.Is(err, model.ErrSourceIneligible):
		return APIError{Code: ErrUnprocessable, Message: err.Error()}
	case errors.Is(err, model.ErrInsufficientPhysicalStock):
		return APIError{Code: ErrIntegrity, Message: err.Error()}
	}
	return NewAPIError(ErrInternalServer, "internal server error", err.Error())
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrInvalidInput, ErrBadRequest:
		return http.StatusBadRequest
	case ErrShortage, ErrUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
