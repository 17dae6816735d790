package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal   ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidPeriod    ErrorCode = "INVALID_PERIOD"

	ErrCodeInvalidAttendance      ErrorCode = "INVALID_ATTENDANCE"
	ErrCodeDeductionLimitExceeded ErrorCode = "DEDUCTION_LIMIT_EXCEEDED"
	ErrCodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeNoEligibleEmployees    ErrorCode = "NO_ELIGIBLE_EMPLOYEES"
	ErrCodeGenerationFailed       ErrorCode = "GENERATION_FAILED"
	ErrCodeRecordPaid             ErrorCode = "RECORD_ALREADY_PAID"
	ErrCodeHeldRecordInBatch      ErrorCode = "HELD_RECORD_IN_BATCH"

	ErrCodeLoanNotFound           ErrorCode = "LOAN_NOT_FOUND"
	ErrCodeInstallmentNotFound    ErrorCode = "INSTALLMENT_NOT_FOUND"
	ErrCodeSalaryRecordNotFound   ErrorCode = "SALARY_RECORD_NOT_FOUND"
	ErrCodePaymentRequestNotFound ErrorCode = "PAYMENT_REQUEST_NOT_FOUND"
	ErrCodePaymentRequestOpen     ErrorCode = "PAYMENT_REQUEST_OPEN"
	ErrCodeObligationNotFound     ErrorCode = "OBLIGATION_NOT_FOUND"
	ErrCodeObligationExists       ErrorCode = "OBLIGATION_EXISTS"
	ErrCodeJurisdictionUnknown    ErrorCode = "JURISDICTION_UNKNOWN"
	ErrCodeMissingPaymentRef      ErrorCode = "MISSING_PAYMENT_REFERENCE"
	ErrCodeMissingChallan         ErrorCode = "MISSING_CHALLAN_NUMBER"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithMessage returns a copy carrying a more specific, caller-facing message.
// Sentinels stay untouched so equality checks in tests keep working.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// Is lets errors.Is match any AppError sharing the same code, so copies
// produced by WithMessage/WithDetails still compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Messages() string {
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewExternalError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// Engine-wide sentinels. Every command either succeeds with a fresh entity
// snapshot or fails with exactly one of these; a rejected guard leaves the
// entity unchanged.
var (
	ErrInvalidAttendance      = NewValidationError("total shifts must be greater than zero", ErrCodeInvalidAttendance)
	ErrDeductionLimitExceeded = NewValidationError("monthly deduction exceeds the wage-protection cap; reduce the loan amount or increase EMI months", ErrCodeDeductionLimitExceeded)
	ErrInvalidStateTransition = NewConflictError("operation not allowed in current state", ErrCodeInvalidStateTransition)
	ErrNoEligibleEmployees    = NewValidationError("no eligible employees for this payment request; all selected records are held or missing", ErrCodeNoEligibleEmployees)
	ErrGenerationFailed       = NewExternalError("statutory document generation failed", ErrCodeGenerationFailed, nil)
	ErrRecordPaid             = NewConflictError("salary record is already paid and immutable", ErrCodeRecordPaid)

	ErrLoanNotFound           = NewNotFoundError("loan not found", ErrCodeLoanNotFound)
	ErrInstallmentNotFound    = NewNotFoundError("loan installment not found", ErrCodeInstallmentNotFound)
	ErrSalaryRecordNotFound   = NewNotFoundError("salary record not found", ErrCodeSalaryRecordNotFound)
	ErrPaymentRequestNotFound = NewNotFoundError("payment request not found", ErrCodePaymentRequestNotFound)
	ErrObligationNotFound     = NewNotFoundError("compliance obligation not found", ErrCodeObligationNotFound)
	ErrObligationExists       = NewConflictError("compliance obligation already exists for this type and period", ErrCodeObligationExists)
	ErrMissingPaymentRef      = NewValidationError("payment reference is required to mark a request paid", ErrCodeMissingPaymentRef)
	ErrMissingChallan         = NewValidationError("challan number and filing date are required to file a return", ErrCodeMissingChallan)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
