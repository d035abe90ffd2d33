package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestLogLevelOverrides(t *testing.T) {
	SetDefaultLogLevel("info")
	cases := []struct {
		url    string
		header string
		want   LogLevel
	}{
		{"/api/chat", "", LevelInfo},
		{"/api/chat?log=1", "", LevelDebug},
		{"/api/chat?log=off", "debug", LevelOff},
		{"/api/chat", "debug", LevelDebug},
		{"/api/chat", "error", LevelError},
		{"/api/chat", "bogus", LevelInfo},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodPost, c.url, nil)
		if c.header != "" {
			r.Header.Set("X-Log-Level", c.header)
		}
		if got := requestLogLevel(r); got != c.want {
			t.Fatalf("%s header=%q: got %d want %d", c.url, c.header, got, c.want)
		}
	}
}

func TestChatLogsCarryRequestID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	defer SetLogger(zerolog.Nop())
	w := postChat(t, NewMux(&mockService{}), `{"messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"message":"chat start"`) || !strings.Contains(out, `"message":"chat end"`) {
		t.Fatalf("missing chat start/end lines: %s", out)
	}
	if !strings.Contains(out, `"request_id"`) {
		t.Fatalf("request id missing: %s", out)
	}
}

func TestDebugOverrideLowersRequestLevel(t *testing.T) {
	SetLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.InfoLevel))
	defer SetLogger(zerolog.Nop())
	r := httptest.NewRequest(http.MethodPost, "/api/chat?log=debug", nil)
	if l := requestLogger(r, requestLogLevel(r)); l.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("level=%v", l.GetLevel())
	}
}
