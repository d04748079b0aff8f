package export

import (
	"strings"
	"testing"

	"github.com/sadopc/hookscope/internal/capture"
)

const hook = "https://hooks.example.com/api/@alice"

func TestAsCurl_GET(t *testing.T) {
	rec := capture.Record{
		Method:  capture.MethodGET,
		Headers: capture.Pairs{{Name: "Accept", Value: "application/json"}, {Name: "Host", Value: "internal:8000"}},
	}

	result := AsCurl(rec, hook)
	if !strings.HasPrefix(result, "curl") {
		t.Error("should start with 'curl'")
	}
	if strings.Contains(result, "-X") {
		t.Error("GET should not have -X flag")
	}
	if !strings.Contains(result, "-H 'Accept: application/json'") {
		t.Errorf("should contain Accept header, got: %s", result)
	}
	if strings.Contains(result, "Host:") {
		t.Error("Host header should be left to curl")
	}
	if !strings.HasSuffix(result, "'"+hook+"'") {
		t.Errorf("should end with webhook URL, got: %s", result)
	}
}

func TestAsCurl_POST(t *testing.T) {
	rec := capture.Record{
		Method:      capture.MethodPOST,
		Headers:     capture.Pairs{{Name: "Content-Type", Value: "application/json"}},
		QueryParams: capture.Pairs{{Name: "tag", Value: "a b"}, {Name: "tag", Value: "c"}},
		Body:        capture.Payload(`{"name": "o'brien"}`),
	}

	result := AsCurl(rec, hook)
	if !strings.Contains(result, "-X POST") {
		t.Error("should have -X POST")
	}
	if !strings.Contains(result, `--data-raw '{"name":"o'\''brien"}'`) {
		t.Errorf("should contain escaped compact body, got: %s", result)
	}
	if !strings.Contains(result, hook+"?tag=a+b&tag=c") {
		t.Errorf("should keep query order, got: %s", result)
	}
}

func TestAsCurl_StringBodyAndUnknownMethod(t *testing.T) {
	rec := capture.Record{
		Method: capture.MethodUnknown,
		Body:   capture.Payload(`"plain text"`),
	}
	result := AsCurl(rec, hook)
	if strings.Contains(result, "-X") {
		t.Errorf("unknown method should replay as GET, got: %s", result)
	}
	if !strings.Contains(result, "--data-raw 'plain text'") {
		t.Errorf("string body should be unquoted, got: %s", result)
	}
}
