package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/openai/openai-go"
)

// apiErr builds an API error with a populated request and response, since
// the error's string form renders the request line and response status.
func apiErr(status int) *openai.Error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	return &openai.Error{StatusCode: status, Request: req, Response: &http.Response{StatusCode: status, Header: http.Header{}}}
}

func TestIsRateLimitError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "status_code", err: apiErr(429), want: true},
		{name: "wrapped_status_code", err: errors.Join(errors.New("call failed"), apiErr(429)), want: true},
		{name: "text_429", err: errors.New("got 429 from upstream"), want: true},
		{name: "text_rate_limit", err: errors.New("Rate limit exceeded"), want: true},
		{name: "other", err: errors.New("bad request"), want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRateLimitError(tc.err); got != tc.want {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestIsServerError(t *testing.T) {
	t.Parallel()

	if !IsServerError(apiErr(503)) {
		t.Fatalf("503 should be a server error")
	}
	if IsServerError(apiErr(404)) {
		t.Fatalf("404 should not be a server error")
	}
	if !IsServerError(errors.New("internal server error")) {
		t.Fatalf("expected text match")
	}
	if IsServerError(nil) {
		t.Fatalf("nil should not be a server error")
	}
}

func TestRetryDelayHint(t *testing.T) {
	t.Parallel()

	mk := func(retryAfter string) error {
		h := http.Header{}
		if retryAfter != "" {
			h.Set("Retry-After", retryAfter)
		}
		e := apiErr(429)
		e.Response = &http.Response{Header: h}
		return e
	}

	if d, ok := retryDelayHint(mk("2")); !ok || d != 2*time.Second {
		t.Fatalf("d=%v ok=%v", d, ok)
	}
	if d, ok := retryDelayHint(mk("600")); !ok || d != retryHintCap {
		t.Fatalf("hint should be capped, d=%v ok=%v", d, ok)
	}
	if _, ok := retryDelayHint(mk("")); ok {
		t.Fatalf("missing header should report no hint")
	}
	if _, ok := retryDelayHint(mk("soon")); ok {
		t.Fatalf("unparseable header should report no hint")
	}
	if _, ok := retryDelayHint(errors.New("plain")); ok {
		t.Fatalf("non-API error should report no hint")
	}
}

func TestCallWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := CallWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestCallWithRetry_Success(t *testing.T) {
	t.Parallel()

	got, err := CallWithRetry(context.Background(), func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestCallWithRetry_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CallWithRetry(ctx, func(ctx context.Context) (int, error) {
		return 0, apiErr(500)
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateSchema_Compliance(t *testing.T) {
	t.Parallel()

	type inner struct {
		Name string `json:"name"`
	}
	type outer struct {
		Items []inner `json:"items"`
		Count int     `json:"count"`
	}

	schema := GenerateSchema[outer]()
	if schema["additionalProperties"] != false {
		t.Fatalf("additionalProperties=%v", schema["additionalProperties"])
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 2 {
		t.Fatalf("required=%v", schema["required"])
	}

	props := schema["properties"].(map[string]interface{})
	items := props["items"].(map[string]interface{})["items"].(map[string]interface{})
	if items["additionalProperties"] != false {
		t.Fatalf("nested additionalProperties=%v", items["additionalProperties"])
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	t.Parallel()

	if got := UpstreamErrorMessage(nil); got != "" {
		t.Fatalf("got=%q", got)
	}
	if got := UpstreamErrorMessage(errors.New("plain failure")); got != "plain failure" {
		t.Fatalf("got=%q", got)
	}
	e := apiErr(429)
	e.Message = "slow down"
	got := UpstreamErrorMessage(e)
	if got != "upstream error (HTTP 429): slow down" {
		t.Fatalf("got=%q", got)
	}
}
