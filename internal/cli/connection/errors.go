package connection

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is returned for every failed backend call.
// Status is zero when no response was received.
type APIError struct {
	Status            int
	Code              string
	Message           string
	DeviceID          string
	GraceLoginAllowed bool
	RetryAfter        time.Duration
	Method            string
	Path              string
	Cause             error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.Cause != nil {
			return fmt.Sprintf("network error: %s %s: %v", e.Method, e.Path, e.Cause)
		}
		return fmt.Sprintf("network error: %s %s", e.Method, e.Path)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (HTTP %d)", e.Code, msg, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
}

func (e *APIError) Unwrap() error { return e.Cause }

// IsNetwork reports whether the request never got a response.
func (e *APIError) IsNetwork() bool { return e.Status == 0 }

// errorBody is the backend's error envelope. The message may arrive under
// any of error, message or detail.
type errorBody struct {
	Error             json.RawMessage `json:"error"`
	Message           json.RawMessage `json:"message"`
	Detail            json.RawMessage `json:"detail"`
	Code              string          `json:"code"`
	DeviceID          string          `json:"device_id"`
	GraceLoginAllowed bool            `json:"grace_login_allowed"`
}

// readAPIError consumes and closes resp.Body.
func readAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	if resp.Request != nil {
		apiErr.Method = resp.Request.Method
		apiErr.Path = resp.Request.URL.Path
	}
	if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
		apiErr.RetryAfter = wait
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if len(apiErr.Message) > 200 || strings.HasPrefix(apiErr.Message, "<") {
			apiErr.Message = ""
		}
		return apiErr
	}

	apiErr.Code = body.Code
	apiErr.DeviceID = body.DeviceID
	apiErr.GraceLoginAllowed = body.GraceLoginAllowed
	for _, raw := range []json.RawMessage{body.Error, body.Message, body.Detail} {
		if msg := rawMessage(raw); msg != "" {
			apiErr.Message = msg
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fieldErrors(data)
	}
	return apiErr
}

// rawMessage extracts a string from a JSON string or string list.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

// fieldErrors flattens a {"field": ["msg", ...]} validation body.
func fieldErrors(data []byte) string {
	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		if msg := rawMessage(fields[name]); msg != "" {
			parts = append(parts, name+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		wait := at.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait.Round(time.Second), true
	}
	return 0, false
}

// HumanizeWait renders a wait as "30 seconds", "1 minute", "2 minutes 5 seconds".
func HumanizeWait(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return "a moment"
	}
	if secs < 60 {
		return plural(secs, "second")
	}
	mins, rem := secs/60, secs%60
	if mins < 60 {
		if rem == 0 {
			return plural(mins, "minute")
		}
		return plural(mins, "minute") + " " + plural(rem, "second")
	}
	hours, mrem := mins/60, mins%60
	if mrem == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(mrem, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
