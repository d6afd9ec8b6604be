package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingFileID indicates a message without a usable file id.
type ErrMissingFileID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingFileID) Error() string { return "missing file id" }

// ErrProcess indicates processing failed after the message was parsed.
type ErrProcess struct {
	FileID    int64
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process file"
	}
	return "process file: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes a queue payload.
func ParseMessage(body string) (Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return Message{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := DecodeMessage([]byte(body))
	if err != nil {
		return Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.FileID <= 0 {
		return msg, meta, ErrMissingFileID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}
