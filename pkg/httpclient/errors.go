package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// maxErrorBody bounds how much of an error body is read and echoed.
const maxErrorBody = 4 << 10

// DownstreamErrorResponse mirrors the httputil.ErrorResponse structure. Some
// asset hosts sit behind services that answer in this shape.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an error that keeps the status semantics, so callers can test it
// with errors.Is against the apperrors sentinels.
//
// The caller should only invoke this when resp.StatusCode is not 2xx. The
// response body is consumed and closed.
func ParseResponseError(resp *http.Response, source string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", source, resp.StatusCode, err)
	}

	message := strings.TrimSpace(string(bodyBytes))
	code := ""
	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		code, message = downstream.Error.Code, downstream.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapStatus(resp.StatusCode, code, message, source)
}

// mapStatus translates an HTTP status into an AppError or a plain error for
// server failures.
func mapStatus(status int, code, message, source string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", source, message)

	switch {
	case status == http.StatusNotFound, status == http.StatusGone:
		return apperrors.NotFound(source, message)
	case status == http.StatusTooManyRequests:
		return apperrors.LimitExceeded(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(qualifiedMsg)
	case status >= 500:
		return fmt.Errorf("%s server error (%d): %s", source, status, message)
	case IsClientError(status):
		return apperrors.InvalidInput(qualifiedMsg)
	default:
		if code == "" {
			code = "UNEXPECTED_STATUS"
		}
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
