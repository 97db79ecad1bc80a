package upstream

import (
	"encoding/json"
	"fmt"
)

// APIError carries whatever user-facing message could be extracted from an
// upstream failure. Callers show Message verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream responded %d: %s", e.Status, e.Message)
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Error  any          `json:"error"`
	Errors []fieldError `json:"errors"`
}

// extractMessage pulls a display message out of an upstream error body: a
// string error verbatim, else the first structured field error, else the
// generic fallback.
func extractMessage(body []byte, fallback string) string {
	var parsed errorBody

	if err := json.Unmarshal(body, &parsed); err != nil {
		return fallback
	}

	if s, ok := parsed.Error.(string); ok && s != "" {
		return s
	}

	if m, ok := parsed.Error.(map[string]any); ok {
		if msg := firstFieldMessage(m); msg != "" {
			return msg
		}
	}

	for _, fe := range parsed.Errors {
		if fe.Message != "" {
			return fe.Message
		}
	}

	return fallback
}

func firstFieldMessage(m map[string]any) string {
	fields, ok := m["fields"].([]any)

	if !ok {
		return ""
	}

	for _, f := range fields {
		entry, ok := f.(map[string]any)

		if !ok {
			continue
		}

		if msg, ok := entry["message"].(string); ok && msg != "" {
			return msg
		}
	}

	return ""
}
