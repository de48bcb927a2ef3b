package models

import (
	"time"

	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

// SyncStatus is the per-entity sync state.
type SyncStatus string

const (
	StatusClean    SyncStatus = "CLEAN"
	StatusDirty    SyncStatus = "DIRTY"
	StatusSyncing  SyncStatus = "SYNCING"
	StatusConflict SyncStatus = "CONFLICT"
	StatusError    SyncStatus = "ERROR"
)

var AllStatuses = []SyncStatus{StatusClean, StatusDirty, StatusSyncing, StatusConflict, StatusError}

// SyncInfo is the tracker row of one entity.
type SyncInfo struct {
	LocalID      string
	EntityType   syncproto.EntityType
	ServerID     *int64
	Version      int64
	LastModified int64 // ms since epoch
	Checksum     string
	Status       SyncStatus
	IsPinned     bool

	// SyncSession and ClaimedAt are set while the row is claimed by a cycle.
	SyncSession string
	ClaimedAt   int64
}

// Conflict is a stored, unresolved disagreement.
type Conflict struct {
	ID              int64
	EntityID        string
	EntityType      syncproto.EntityType
	LocalData       map[string]any
	RemoteData      map[string]any
	LocalTimestamp  int64
	RemoteTimestamp int64
	CreatedAt       int64
}

// SyncState is the engine-wide state shown to users.
type SyncState string

const (
	StateIdle         SyncState = "IDLE"
	StateSyncing      SyncState = "SYNCING"
	StateHasConflicts SyncState = "HAS_CONFLICTS"
	StateError        SyncState = "ERROR"
)

// SyncTrigger records what started a cycle.
type SyncTrigger string

const (
	TriggerAppLaunch     SyncTrigger = "APP_LAUNCH"
	TriggerAppResume     SyncTrigger = "APP_RESUME"
	TriggerTimer         SyncTrigger = "TIMER"
	TriggerNetworkChange SyncTrigger = "NETWORK_CHANGE"
	TriggerManual        SyncTrigger = "MANUAL"
)

// SyncResult summarises one cycle.
type SyncResult struct {
	Synced    int
	Conflicts int
	Failed    int
	Errors    []string
	Trigger   SyncTrigger
	Timestamp time.Time
}

// Resolution is a user's answer to a stored conflict.
type Resolution string

const (
	AcceptLocal  Resolution = "ACCEPT_LOCAL"
	AcceptRemote Resolution = "ACCEPT_REMOTE"
	AcceptNewest Resolution = "ACCEPT_NEWEST"
)
