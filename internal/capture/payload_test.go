package capture

import (
	"strings"
	"testing"
)

func TestPayloadPretty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", ``, "null"},
		{"null", `null`, "null"},
		{"plain string", `"hello world"`, "hello world"},
		{"object", `{"a":1}`, "{\n  \"a\": 1\n}"},
		{"json in string", `"{\"b\":2}"`, "{\n  \"b\": 2\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Payload(tt.raw).Pretty()
			if got != tt.want {
				t.Errorf("Pretty() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPayloadText(t *testing.T) {
	if got := Payload(`"raw body"`).Text(); got != "raw body" {
		t.Errorf("Text() = %q", got)
	}
	got := Payload("{\n  \"a\": 1\n}").Text()
	if strings.ContainsAny(got, "\n ") {
		t.Errorf("expected compact JSON, got %q", got)
	}
	if got := Payload(`null`).Text(); got != "" {
		t.Errorf("Text() of null = %q", got)
	}
}

func TestPairsMarshalGroupsDuplicates(t *testing.T) {
	p := Pairs{{"a", "1"}, {"b", "2"}, {"a", "3"}}
	data, err := p.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":["1","3"],"b":"2"}` {
		t.Errorf("MarshalJSON = %s", data)
	}
	if m := p.Map(); m["a"] != "1, 3" {
		t.Errorf("Map()[a] = %q", m["a"])
	}
}

func TestPairsNull(t *testing.T) {
	var p Pairs
	if err := p.UnmarshalJSON([]byte(`null`)); err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("expected nil pairs, got %+v", p)
	}
	if err := p.UnmarshalJSON([]byte(`[1]`)); err == nil {
		t.Error("expected error for non-object")
	}
}
