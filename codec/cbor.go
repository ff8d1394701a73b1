package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is an alternate Codec for hosts that would rather not register every
// concrete Work/result type with encoding/gob. Unlike Gob, cbor.Marshal
// does not require prior type registration for common concrete types, at
// the cost of Decode returning generic map[any]any/[]any shapes for
// anything that isn't a registered Go struct on the receiving side.
type CBOR struct{}

var cborMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building canonical CBOR EncMode: %v", err))
	}
	return m
}()

func (CBOR) Encode(v any) ([]byte, error) {
	data, err := cborMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: cbor encode: %w", err)
	}
	return data, nil
}

// cborDecMode decodes CBOR integers into an empty interface as int64, so a
// signed integer result round-trips with its signed type intact.
var cborDecMode = func() cbor.DecMode {
	m, err := cbor.DecOptions{IntDec: cbor.IntDecConvertSigned}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building CBOR DecMode: %v", err))
	}
	return m
}()

func (CBOR) Decode(data []byte) (any, error) {
	var v any
	if err := cborDecMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("codec: cbor decode: %w", err)
	}
	return v, nil
}
