package transport

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello child")
	if err := WriteFrame(&buf, TypeResult, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	frameType, got, err := ReadFrame(bufio.NewReader(&buf), DefaultMaxFrameSize, nil)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frameType != TypeResult {
		t.Fatalf("frameType = %q, want %q", frameType, TypeResult)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
}

func TestReadFrame_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, TypeError, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	frameType, payload, err := ReadFrame(bufio.NewReader(&buf), DefaultMaxFrameSize, nil)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frameType != TypeError || len(payload) != 0 {
		t.Fatalf("got (%q, %q)", frameType, payload)
	}
}

func TestReadFrame_EOFBeforePayload(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("RESULT\n10\nshort"))
	_, _, err := ReadFrame(r, DefaultMaxFrameSize, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestReadFrame_OversizedDeclaredSize(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("RESULT\n999999999\nbody"))
	_, _, err := ReadFrame(r, 1024, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestReadFrame_ReusesSuppliedBuffer(t *testing.T) {
	var out bytes.Buffer
	payload := []byte("reuse me")
	_ = WriteFrame(&out, TypeResult, payload)

	buf := make([]byte, 0, 64)
	_, got, err := ReadFrame(bufio.NewReader(&out), DefaultMaxFrameSize, buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if &got[0] != &buf[:cap(buf)][0] {
		t.Fatalf("expected ReadFrame to reuse the supplied backing array")
	}
}

func TestReadFrame_InvalidFrameType(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("BOGUS\n4\nabcd"))
	_, _, err := ReadFrame(r, DefaultMaxFrameSize, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}
