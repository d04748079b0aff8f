package capture

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const samplePage = `[
  {
    "id": "a1",
    "username": "alice",
    "method": "post",
    "path": "/api/@alice/orders",
    "request_time": "2024-03-01T12:30:45.123456",
    "response_time": 120,
    "headers": {"user-agent": "curl/8.0", "content-type": "application/json", "accept": "*/*"},
    "query_params": {"page": ["1", "2"], "q": "x"},
    "body": {"order": 7},
    "response": "{\"status\": \"success\"}"
  },
  {"id": "b2", "method": "BREW"}
]`

func TestDecodePage(t *testing.T) {
	records, err := DecodePage([]byte(samplePage))
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	r := records[0]
	if r.ID != "a1" || r.Account != "alice" {
		t.Errorf("unexpected identity: %+v", r)
	}
	if r.Method != MethodPOST {
		t.Errorf("expected POST, got %s", r.Method)
	}
	want := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)
	if !r.RequestTime.Equal(want) {
		t.Errorf("RequestTime = %v, want %v", r.RequestTime, want)
	}
	if r.ResponseTimeMs != 120 {
		t.Errorf("ResponseTimeMs = %d, want 120", r.ResponseTimeMs)
	}

	// Header order follows the wire object.
	names := []string{"user-agent", "content-type", "accept"}
	if len(r.Headers) != len(names) {
		t.Fatalf("expected %d headers, got %d", len(names), len(r.Headers))
	}
	for i, n := range names {
		if r.Headers[i].Name != n {
			t.Errorf("header %d = %q, want %q", i, r.Headers[i].Name, n)
		}
	}
	if ct, ok := r.Headers.Get("Content-Type"); !ok || ct != "application/json" {
		t.Errorf("Get(Content-Type) = %q, %v", ct, ok)
	}

	// List query values expand to one pair each.
	if len(r.QueryParams) != 3 {
		t.Fatalf("expected 3 query pairs, got %d: %+v", len(r.QueryParams), r.QueryParams)
	}
	if r.QueryParams[1].Name != "page" || r.QueryParams[1].Value != "2" {
		t.Errorf("unexpected second query pair: %+v", r.QueryParams[1])
	}

	other := records[1]
	if other.Method != MethodUnknown {
		t.Errorf("expected UNKNOWN method, got %s", other.Method)
	}
	if !other.RequestTime.IsZero() {
		t.Error("expected zero RequestTime for missing field")
	}
	if other.DisplayTime() != "Unknown Time" {
		t.Errorf("DisplayTime = %q", other.DisplayTime())
	}
	if other.DisplayPath() != "/" {
		t.Errorf("DisplayPath = %q", other.DisplayPath())
	}
	if other.ResponseTimeMs != 0 {
		t.Errorf("ResponseTimeMs = %d, want 0", other.ResponseTimeMs)
	}
}

func TestDecodePageInvalidData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"object", `{"error": "boom"}`},
		{"string", `"nope"`},
		{"empty", ``},
		{"broken array", `[{"id": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePage([]byte(tt.data))
			if !errors.Is(err, ErrInvalidData) {
				t.Fatalf("expected ErrInvalidData, got %v", err)
			}
		})
	}
}

func TestDecodePageEmptyArray(t *testing.T) {
	records, err := DecodePage([]byte(`[]`))
	if err != nil {
		t.Fatalf("DecodePage: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", records)
	}
}

func TestNegativeResponseTimeClamped(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"id":"x","response_time":-5}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.ResponseTimeMs != 0 {
		t.Errorf("ResponseTimeMs = %d, want 0", r.ResponseTimeMs)
	}
}

func TestParseMethod(t *testing.T) {
	tests := map[string]Method{
		"get":      MethodGET,
		" PATCH ":  MethodPATCH,
		"options":  MethodOPTIONS,
		"":         MethodUnknown,
		"PROPFIND": MethodUnknown,
	}
	for in, want := range tests {
		if got := ParseMethod(in); got != want {
			t.Errorf("ParseMethod(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2024-01-02T03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		if got := ParseTime(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRecordRoundTripKeepsOrder(t *testing.T) {
	records, err := DecodePage([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(records[0])
	if err != nil {
		t.Fatal(err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Headers[0].Name != "user-agent" || len(back.QueryParams) != 3 {
		t.Errorf("round trip lost structure: %+v", back)
	}
	if !back.RequestTime.Equal(records[0].RequestTime) {
		t.Errorf("RequestTime changed: %v vs %v", back.RequestTime, records[0].RequestTime)
	}
}
