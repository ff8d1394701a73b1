package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Gob is the default Codec. Concrete result types must be registered with
// gob.Register by the host's init() code before dispatch.Init() re-execs
// into a child; the builtin scalars and containers below are registered
// here so a work function returning an int or a map works out of the box.
type Gob struct{}

func init() {
	// Results travel through an `any`, and gob refuses to transmit a
	// concrete type through an interface unless it was registered.
	for _, v := range []any{
		int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint16(0), uint32(0), uint64(0), uint8(0),
		float32(0), float64(0), "", true,
		[]any(nil), map[string]any(nil), []byte(nil), []string(nil),
		[]int(nil), map[string]string(nil),
	} {
		gob.Register(v)
	}
}

func (Gob) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, fmt.Errorf("codec: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (Gob) Decode(data []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, fmt.Errorf("codec: gob decode: %w", err)
	}
	return v, nil
}
