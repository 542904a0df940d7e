// Package codec centralizes metadata and manifest encoding.
//
// Persisted metadata blobs and backup manifests are written by whichever
// codec the engine was configured with. Codec selection is a compatibility
// boundary: bytes written by one codec are only guaranteed to decode with a
// codec of the same name.
package codec

// Codec encodes and decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured. It affects newly
// written data only; backup manifests record the codec name so they can be
// validated on restore.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
