package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// IsTransient reports whether err looks like an infrastructure failure worth
// retrying: deadlines, network errors, throttling and server errors.
// Malformed mail, unusable model answers and client errors are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableStatus(gerr.Code)
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return retryableStatus(v.Code)
		case *genai.APIError:
			if v != nil {
				return retryableStatus(v.Code)
			}
		}
	}

	var nerr net.Error
	return errors.As(err, &nerr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
