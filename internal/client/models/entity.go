// Package models defines the client-side data model: locally stored
// entities, their sync metadata and stored conflicts.
package models

import "github.com/dmitrijs2005/recipesync/internal/syncproto"

// Entity is one locally stored row of any type. Data carries the typed
// payload; its EntityType is the entity's type.
type Entity struct {
	LocalID string
	Data    syncproto.Payload
}

func (e Entity) Type() syncproto.EntityType {
	return e.Data.EntityType()
}

func (e Entity) Checksum() string {
	return syncproto.Checksum(e.Data)
}
