package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/espalier-cmd/espalier/pkgs/registry"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding.
// The same set of registered trees always exports to identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("manifest: CBOR encoder initialization failed: " + err.Error())
	}
}

// Export is the serializable snapshot of a registry: every registered
// tree as a structural descriptor.
type Export struct {
	Commands []registry.Descriptor `json:"commands" cbor:"commands"`
}

// Snapshot captures the current state of a registry.
func Snapshot(reg *registry.Registry) Export {
	return Export{Commands: reg.Describe()}
}

// ExportJSON renders a snapshot as indented JSON.
func ExportJSON(ex Export) ([]byte, error) {
	data, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export encode failed: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportCBOR renders a snapshot as deterministic CBOR.
func ExportCBOR(ex Export) ([]byte, error) {
	data, err := encMode.Marshal(ex)
	if err != nil {
		return nil, fmt.Errorf("export encode failed: %w", err)
	}
	return data, nil
}

// DecodeCBOR reads back a CBOR export.
func DecodeCBOR(data []byte) (Export, error) {
	var ex Export
	if err := cbor.Unmarshal(data, &ex); err != nil {
		return Export{}, fmt.Errorf("export decode failed: %w", err)
	}
	return ex, nil
}
