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

package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blnkfinance/wharf/allocator"
	"github.com/blnkfinance/wharf/internal/apierror"
	redlock "github.com/blnkfinance/wharf/internal/lock"
	"github.com/blnkfinance/wharf/model"
)

func TestNewAPIError(t *testing.T) {
	details := "Some internal error details"
	apiErr := apierror.NewAPIError(apierror.ErrInternalServer, "Something went wrong", details)

	assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
	assert.Equal(t, "Something went wrong", apiErr.Message)
	assert.Equal(t, details, apiErr.Details)
	assert.Equal(t, "INTERNAL_SERVER_ERROR: Something went wrong", apiErr.Error())
}

func TestFromDomain(t *testing.T) {
	shortage := &allocator.ShortageError{Lines: []allocator.ShortageLine{
		{ProductID: "P1", Class: model.ClassPiece, Needed: 10, Available: 7, Missing: 3},
	}}

	tests := []struct {
		name   string
		err    error
		code   apierror.ErrorCode
		status int
	}{
		{"shortage", shortage, apierror.ErrShortage, http.StatusUnprocessableEntity},
		{"wrapped not found", fmt.Errorf("job job_1: %w", model.ErrNotFound), apierror.ErrNotFound, http.StatusNotFound},
		{"not cancellable", model.ErrJobNotCancellable, apierror.ErrConflict, http.StatusConflict},
		{"duplicate job", model.ErrDuplicateActiveJob, apierror.ErrConflict, http.StatusConflict},
		{"lock held", fmt.Errorf("%w: wharf:lock:demand:ord_1", redlock.ErrLockHeld), apierror.ErrConflict, http.StatusConflict},
		{"race on reserve", model.ErrInsufficientAvailability, apierror.ErrConflict, http.StatusConflict},
		{"approval", &model.InsufficientApprovalError{ProductID: "P1", Needed: 5, Available: 2}, apierror.ErrUnprocessable, http.StatusUnprocessableEntity},
		{"destination", &model.DestinationError{Code: "OB-1", Reason: "unknown code"}, apierror.ErrUnprocessable, http.StatusUnprocessableEntity},
		{"no boxes", model.ErrNoBoxesLinked, apierror.ErrUnprocessable, http.StatusUnprocessableEntity},
		{"integrity", &model.IntegrityError{TaskID: "task_1", ProductID: "P1", Needed: 5, Found: 3}, apierror.ErrIntegrity, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), apierror.ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := apierror.FromDomain(tt.err)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.status, apierror.MapErrorToHTTPStatus(apiErr))
		})
	}

	assert.Equal(t, shortage.Lines, apierror.FromDomain(shortage).Details)
	assert.Equal(t, "insufficient available for P1", apierror.FromDomain(&model.InsufficientApprovalError{ProductID: "P1"}).Message)
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "NotFound Error",
			err:      apierror.NewAPIError(apierror.ErrNotFound, "Resource not found", nil),
			expected: http.StatusNotFound,
		},
		{
			name:     "InvalidInput Error",
			err:      apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid input", nil),
			expected: http.StatusBadRequest,
		},
		{
			name:     "Wrapped APIError",
			err:      fmt.Errorf("handler: %w", apierror.NewAPIError(apierror.ErrConflict, "busy", nil)),
			expected: http.StatusConflict,
		},
		{
			name:     "Unknown Error",
			err:      errors.New("Unknown error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apierror.MapErrorToHTTPStatus(tt.err))
		})
	}
}
