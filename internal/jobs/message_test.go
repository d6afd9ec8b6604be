package jobs

import (
	"errors"
	"reflect"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		FileID:     42,
		RequestID:  "request-456",
		EnqueuedAt: "2026-01-30T22:00:00Z",
		Version:    MessageVersion,
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestParseMessageClassifiesFailures(t *testing.T) {
	if _, _, err := ParseMessage("  "); !errors.As(err, new(ErrEmptyBody)) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	_, meta, err := ParseMessage("{bad")
	if !errors.As(err, new(ErrDecode)) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != 4 || len(meta.BodySHA) != 64 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	var missing ErrMissingFileID
	if _, _, err := ParseMessage(`{"fileId":0,"requestId":"r1"}`); !errors.As(err, &missing) || missing.RequestID != "r1" {
		t.Fatalf("expected ErrMissingFileID with request id, got %v", err)
	}
	msg, _, err := ParseMessage(`{"fileId":9,"version":1}`)
	if err != nil || msg.FileID != 9 {
		t.Fatalf("expected valid message, got %+v err=%v", msg, err)
	}
}
