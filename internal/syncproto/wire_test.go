package syncproto

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestSyncRequest_WireFormat(t *testing.T) {
	serverID := int64(7)
	req := SyncRequest{Entities: []SyncEntity{
		{
			LocalID:   "r-1",
			Type:      TypeRecipe,
			Data:      Recipe{Name: "Pancakes"}.ToMap(),
			Version:   1,
			Timestamp: 1700000000000,
			Checksum:  "abc",
		},
		{
			LocalID:   "q-1",
			ServerID:  &serverID,
			Type:      TypeQuantity,
			Data:      Quantity{Amount: 2.5, UnitID: "u-1"}.ToMap(),
			Version:   3,
			Timestamp: 1700000000001,
			Checksum:  "def",
		},
	}}

	b, err := json.Marshal(req)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "sync_request", b)
}

func TestSyncResponse_WireFormat(t *testing.T) {
	resp := SyncResponse{Results: []SyncResult{
		Accept("r-1", 12),
		Conflict("q-1", 7, Snapshot(Quantity{Amount: 3, UnitID: "u-1"}, 2), 1700000000500),
		Reject("x-1", errString("unknown entity type: \"SPICE\"")),
	}}

	b, err := json.Marshal(resp)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "sync_response", b)
}

type errString string

func (e errString) Error() string { return string(e) }
