// Package models defines server-side data models persisted in the database.
package models

import "github.com/dmitrijs2005/recipesync/internal/syncproto"

// Record is the server copy of one synchronised entity.
type Record struct {
	// ID is the server-assigned id, returned to clients as serverId.
	ID int64
	// LocalID is the client-generated identity. It is unique per type.
	LocalID string
	// Payload holds the entity content. References inside it are localIds.
	Payload syncproto.Payload
	// Version and LastModified are copied from the last accepted client write.
	Version      int64
	LastModified int64
	// Checksum is recomputed by the server from Payload.
	Checksum string
}

// Type reports the entity type of the record's payload.
func (r *Record) Type() syncproto.EntityType {
	return r.Payload.EntityType()
}

// RejectedWrite is an incoming client write that lost to the server copy.
// It is kept in the conflict archive for later inspection.
type RejectedWrite struct {
	DeviceID        string               `json:"deviceId,omitempty"`
	Incoming        syncproto.SyncEntity `json:"incoming"`
	ServerID        int64                `json:"serverId"`
	ServerVersion   int64                `json:"serverVersion"`
	ServerData      map[string]any       `json:"serverData"`
	ServerTimestamp int64                `json:"serverTimestamp"`
	RecordedAt      int64                `json:"recordedAt"`
}
