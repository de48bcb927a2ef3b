// Package syncproto is the JSON contract spoken between the recipesync client
// and server: entity types, typed payloads and the batch request/response
// envelopes.
package syncproto

// EntityType names a synchronised entity kind.
type EntityType string

const (
	TypeRecipe           EntityType = "RECIPE"
	TypeIngredient       EntityType = "INGREDIENT"
	TypeUnit             EntityType = "UNIT"
	TypeQuantity         EntityType = "QUANTITY"
	TypeRecipeIngredient EntityType = "RECIPE_INGREDIENT"
)

// SyncOrder lists entity types so that every type comes after the types it
// references. Batches are sent in this order.
var SyncOrder = []EntityType{TypeUnit, TypeIngredient, TypeRecipe, TypeQuantity, TypeRecipeIngredient}

func (t EntityType) Valid() bool {
	return t.Rank() >= 0
}

// Rank is the position of t in SyncOrder, or -1 for unknown types.
func (t EntityType) Rank() int {
	for i, x := range SyncOrder {
		if x == t {
			return i
		}
	}
	return -1
}

// SyncEntity is one item of an outgoing batch.
type SyncEntity struct {
	LocalID   string         `json:"localId" validate:"required"`
	ServerID  *int64         `json:"serverId"`
	Type      EntityType     `json:"type" validate:"required"`
	Data      map[string]any `json:"data"`
	Version   int64          `json:"version" validate:"min=1"`
	Timestamp int64          `json:"timestamp" validate:"gt=0"`
	Checksum  string         `json:"checksum" validate:"required"`
}

type SyncRequest struct {
	Entities []SyncEntity `json:"entities"`
}

// SyncResult is the server's verdict for a single SyncEntity.
type SyncResult struct {
	LocalID         string         `json:"localId"`
	ServerID        *int64         `json:"serverId"`
	Accepted        bool           `json:"accepted"`
	HasConflict     bool           `json:"hasConflict"`
	RemoteData      map[string]any `json:"remoteData"`
	RemoteTimestamp *int64         `json:"remoteTimestamp"`
	ErrorMessage    *string        `json:"errorMessage"`
}

type SyncResponse struct {
	Results []SyncResult `json:"results"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// TokenRequest enrols a device and asks for an access token.
type TokenRequest struct {
	DeviceID      string `json:"deviceId" validate:"required"`
	EnrollmentKey string `json:"enrollmentKey" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Accept builds an accepted result.
func Accept(localID string, serverID int64) SyncResult {
	return SyncResult{LocalID: localID, ServerID: &serverID, Accepted: true}
}

// Conflict builds a conflict result carrying the server snapshot.
func Conflict(localID string, serverID int64, remote map[string]any, remoteTimestamp int64) SyncResult {
	return SyncResult{
		LocalID:         localID,
		ServerID:        &serverID,
		HasConflict:     true,
		RemoteData:      remote,
		RemoteTimestamp: &remoteTimestamp,
	}
}

// Reject builds a per-item failure.
func Reject(localID string, err error) SyncResult {
	msg := err.Error()
	return SyncResult{LocalID: localID, ErrorMessage: &msg}
}
