package attendance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

const fallbackRejection = "attendance could not be recorded"

// RemoteValidator delegates the check to a hosted mark-attendance function.
type RemoteValidator struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

// NewRemoteValidator creates a client for the function at url.
func NewRemoteValidator(url, apiKey string) *RemoteValidator {
	return &RemoteValidator{
		URL:    url,
		APIKey: apiKey,
		HTTP:   &http.Client{Timeout: 15 * time.Second},
	}
}

type remoteEnvelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Data    *struct {
		Success *bool           `json:"success"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	} `json:"data"`
}

// Validate posts the mark to the function and unwraps any rejection into a
// single *errors.MarkRejectedError. Transport failures are returned as-is.
func (v *RemoteValidator) Validate(ctx context.Context, req MarkRequest) error {
	body, err := json.Marshal(map[string]string{
		"session_id": req.SessionID,
		"student_id": req.StudentID,
		"token":      req.Token,
		"method":     string(req.Method),
	})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mark-attendance: create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if v.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+v.APIKey)
	}

	resp, err := v.HTTP.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mark-attendance: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mark-attendance: read response failed: %w", err)
	}
	return interpretRemote(resp.StatusCode, raw)
}

func interpretRemote(status int, raw []byte) error {
	var env remoteEnvelope
	decoded := len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &env) == nil

	if decoded {
		if msg := errorMessage(env.Error); msg != "" {
			return &apperr.MarkRejectedError{Message: msg}
		}
		if env.Data != nil {
			if msg := errorMessage(env.Data.Error); msg != "" {
				return &apperr.MarkRejectedError{Message: msg}
			}
			if env.Data.Success != nil && !*env.Data.Success {
				return &apperr.MarkRejectedError{Message: firstNonEmpty(env.Data.Message, env.Message, fallbackRejection)}
			}
		}
		if env.Success != nil && !*env.Success {
			return &apperr.MarkRejectedError{Message: firstNonEmpty(env.Message, fallbackRejection)}
		}
	}

	if status >= 300 {
		if decoded && env.Message != "" {
			return &apperr.MarkRejectedError{Message: env.Message}
		}
		if text := strings.TrimSpace(string(raw)); text != "" && !decoded {
			return &apperr.MarkRejectedError{Message: text}
		}
		return &apperr.MarkRejectedError{Message: fmt.Sprintf("%s (status %d)", fallbackRejection, status)}
	}
	return nil
}

// errorMessage reads an error field that is either a string or an object
// carrying message/error.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if nested := errorMessage(obj.Error); nested != "" {
			return nested
		}
	}
	return fallbackRejection
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
