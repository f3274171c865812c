package stage

import "encoding/json"

// decodeVia re-marshals an arbitrary value (typically a map[string]any
// produced by decoding a JSON snapshot) and unmarshals it into dst. It is
// the fallback path of decodeState when raw isn't already the concrete
// state type, e.g. after a save/load round trip through the pipeline's
// JSON-encoded Snapshot.
func decodeVia(raw any, dst any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dst)
}
