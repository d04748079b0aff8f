package scripting

import (
	"testing"
	"time"

	"github.com/sadopc/hookscope/internal/capture"
)

func sampleRecord() capture.Record {
	return capture.Record{
		ID:             "r1",
		Method:         capture.MethodPOST,
		Path:           "/api/@alice/stripe",
		RequestTime:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ResponseTimeMs: 12,
		Headers:        capture.Pairs{{Name: "Content-Type", Value: "application/json"}, {Name: "X-Signature", Value: "abc"}},
		QueryParams:    capture.Pairs{{Name: "env", Value: "test"}},
		Body:           capture.Payload(`{"type":"invoice.paid","amount":1200}`),
		Response:       capture.Payload(`"ok"`),
	}
}

func TestFilterMatch(t *testing.T) {
	engine := NewEngine(5 * time.Second)
	rec := sampleRecord()

	tests := []struct {
		expr string
		want bool
	}{
		{`req.method == "POST"`, true},
		{`req.method === "GET"`, false},
		{`req.body.type == "invoice.paid" && req.body.amount > 1000`, true},
		{`req.path.indexOf("stripe") >= 0`, true},
		{`req.query.env == "prod"`, false},
		{`hookscope.header("x-signature") == "abc"`, true},
		{`req.headers["Content-Type"]`, true},
		{`req.response == "ok"`, true},
		{`req.time.startsWith("2026-03-01")`, true},
		{`req.responseTimeMs < 10`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := engine.Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			res := f.Eval(rec)
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if res.Match != tt.want {
				t.Errorf("Match = %v, want %v", res.Match, tt.want)
			}
		})
	}
}

func TestFilterStringBody(t *testing.T) {
	engine := NewEngine(time.Second)
	f, err := engine.Compile(`req.body == "hello" && req.rawBody.length == 5`)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Match(capture.Record{Method: capture.MethodPUT, Body: capture.Payload(`"hello"`)}) {
		t.Error("expected string body to match")
	}
}

func TestFilterRuntimeErrorIsNoMatch(t *testing.T) {
	engine := NewEngine(time.Second)
	f, err := engine.Compile(`req.body.missing.field == 1`)
	if err != nil {
		t.Fatal(err)
	}
	res := f.Eval(capture.Record{Method: capture.MethodGET})
	if res.Err == nil {
		t.Fatal("expected TypeError on null body")
	}
	if res.Match {
		t.Error("errors must not match")
	}
}

func TestCompileErrors(t *testing.T) {
	engine := NewEngine(time.Second)
	if _, err := engine.Compile("   "); err == nil {
		t.Error("expected error for empty filter")
	}
	if _, err := engine.Compile("req.method =="); err == nil {
		t.Error("expected syntax error")
	}
}

func TestFilterTimeout(t *testing.T) {
	engine := NewEngine(200 * time.Millisecond)
	f, err := engine.Compile(`while(true){}`)
	if err != nil {
		t.Fatal(err)
	}
	if res := f.Eval(sampleRecord()); res.Err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestUtilityFunctions(t *testing.T) {
	engine := NewEngine(5 * time.Second)
	f, err := engine.Compile(`
		var encoded = hookscope.base64encode("hello");
		hookscope.log(hookscope.base64decode(encoded));
		hookscope.log(hookscope.sha256("test"));
		hookscope.log(hookscope.hmacSHA256("secret", req.rawBody));
		hookscope.log(hookscope.uuid());
		true;
	`)
	if err != nil {
		t.Fatal(err)
	}
	res := f.Eval(sampleRecord())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Match {
		t.Error("expected trailing true to match")
	}
	if len(res.Logs) != 4 {
		t.Fatalf("expected 4 logs, got %d", len(res.Logs))
	}
	if res.Logs[0] != "hello" {
		t.Errorf("expected hello, got %s", res.Logs[0])
	}
	// SHA-256 and HMAC-SHA256 hex digests
	if len(res.Logs[1]) != 64 || len(res.Logs[2]) != 64 {
		t.Errorf("expected 64 char digests, got %d and %d", len(res.Logs[1]), len(res.Logs[2]))
	}
	// UUID should be 36 chars
	if len(res.Logs[3]) != 36 {
		t.Errorf("expected 36 char UUID, got %d", len(res.Logs[3]))
	}
}
