package json

import (
	"strings"
	"testing"
)

func TestDecodePlainObject(t *testing.T) {
	args, err := DecodeArguments([]byte(`{"path": "a.md", "limit": 3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["path"] != "a.md" {
		t.Errorf("got path %v", args["path"])
	}
	if args["limit"] != float64(3) {
		t.Errorf("got limit %v", args["limit"])
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n"} {
		args, err := DecodeArguments([]byte(raw))
		if err != nil {
			t.Fatalf("payload %q: unexpected error: %v", raw, err)
		}
		if len(args) != 0 {
			t.Errorf("payload %q: expected empty map, got %v", raw, args)
		}
	}
}

func TestDecodeMarkdownFenced(t *testing.T) {
	payload := "```json\n{\"query\": \"links\"}\n```"
	args, err := DecodeArguments([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["query"] != "links" {
		t.Errorf("got %v", args)
	}
}

func TestDecodeEmbeddedObject(t *testing.T) {
	payload := `Sure, calling the tool with: {"url": "https://example.com"} as requested.`
	args, err := DecodeArguments([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["url"] != "https://example.com" {
		t.Errorf("got %v", args)
	}
}

func TestDecodeInvalidPayload(t *testing.T) {
	_, err := DecodeArguments([]byte("{not json at all"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no valid JSON object") {
		t.Errorf("got %v", err)
	}
}

func TestDecodeNonObjectPayload(t *testing.T) {
	if _, err := DecodeArguments([]byte(`[1, 2, 3]`)); err == nil {
		t.Fatal("expected error for a JSON array payload")
	}
}
