package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
)

// DownstreamErrorResponse covers the two error envelopes the review API can
// produce: FastAPI's {"detail": ...} and the structured {"error": {...}}.
// Detail is either a string or a list of validation entries.
type DownstreamErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. Known envelopes keep their message;
// anything else is reported with the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil {
		if downstream.Error != nil {
			return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
		}
		if msg, ok := detailMessage(downstream.Detail); ok {
			return mapDownstreamError(resp.StatusCode, "", msg, serviceName)
		}
	}

	// Client errors keep their semantics even without a recognised body.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return mapDownstreamError(resp.StatusCode, "", strings.TrimSpace(string(bodyBytes)), serviceName)
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))
}

func detailMessage(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, true
	}

	var entries []validationDetail
	if json.Unmarshal(raw, &entries) == nil && len(entries) > 0 {
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			field := ""
			if n := len(e.Loc); n > 0 {
				field = fmt.Sprint(e.Loc[n-1])
			}
			if field != "" {
				parts = append(parts, field+": "+e.Msg)
			} else {
				parts = append(parts, e.Msg)
			}
		}
		return strings.Join(parts, "; "), true
	}

	return string(raw), true
}

// mapDownstreamError translates a downstream service's HTTP status code and
// error code into an AppError that preserves the error semantics.
func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualifiedMsg)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	default:
		if code == "" {
			code = http.StatusText(status)
		}
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}
