package syncproto

import "encoding/json"

// VersionKey is added to a payload map to carry the server's version in a
// conflict snapshot.
const VersionKey = "version"

// Snapshot is the remoteData the server returns on conflict.
func Snapshot(p Payload, version int64) map[string]any {
	m := p.ToMap()
	m[VersionKey] = version
	return m
}

// SplitSnapshot separates the version from a conflict snapshot. The version
// is zero when absent.
func SplitSnapshot(m map[string]any) (map[string]any, int64) {
	data := make(map[string]any, len(m))
	var version int64
	for k, v := range m {
		if k != VersionKey {
			data[k] = v
			continue
		}
		switch n := v.(type) {
		case float64:
			version = int64(n)
		case int64:
			version = n
		case int:
			version = int64(n)
		case json.Number:
			version, _ = n.Int64()
		}
	}
	return data, version
}
