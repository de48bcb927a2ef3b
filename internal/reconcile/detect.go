// Package reconcile decides whether two versions of an entity disagree and,
// on the client, how such a disagreement is settled.
package reconcile

// Stamp identifies one side of a comparison: the version counter, the
// content checksum and the last-modified time in milliseconds since epoch.
type Stamp struct {
	Version   int64
	Checksum  string
	Timestamp int64
}

// Detect reports whether incoming conflicts with existing.
//
// Equal versions never conflict, and neither do equal checksums. Otherwise
// the incoming edit is accepted only when it is strictly newer; equal
// timestamps count as a conflict.
func Detect(existing, incoming Stamp) bool {
	if existing.Version == incoming.Version {
		return false
	}
	if existing.Checksum == incoming.Checksum {
		return false
	}
	return incoming.Timestamp <= existing.Timestamp
}
