package syncproto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_AllTypes(t *testing.T) {
	tests := []struct {
		name string
		typ  EntityType
		data map[string]any
		want Payload
	}{
		{"recipe", TypeRecipe, map[string]any{"name": "Pancakes"}, Recipe{Name: "Pancakes"}},
		{"ingredient", TypeIngredient, map[string]any{"name": "Flour"}, Ingredient{Name: "Flour"}},
		{
			"unit with defaults", TypeUnit,
			map[string]any{"name": "Piece", "symbol": "pc"},
			Unit{Name: "Piece", Symbol: "pc", MeasurementType: MeasurementCount, BaseConversionFactor: 1},
		},
		{
			"unit explicit", TypeUnit,
			map[string]any{"name": "Kilogram", "symbol": "kg", "measurementType": "weight", "baseConversionFactor": 1000.0},
			Unit{Name: "Kilogram", Symbol: "kg", MeasurementType: MeasurementWeight, BaseConversionFactor: 1000},
		},
		{"quantity", TypeQuantity, map[string]any{"amount": json.Number("2.5"), "unitId": "u1"}, Quantity{Amount: 2.5, UnitID: "u1"}},
		{
			"link without quantity", TypeRecipeIngredient,
			map[string]any{"recipeId": "r1", "ingredientId": "i1", "quantityId": nil},
			RecipeIngredient{RecipeID: "r1", IngredientID: "i1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.typ, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.typ, got.EntityType())
		})
	}
}

func TestDecodePayload_Errors(t *testing.T) {
	_, err := DecodePayload("SPICE", map[string]any{"name": "x"})
	assert.True(t, errors.Is(err, common.ErrUnknownEntityType))

	_, err = DecodePayload(TypeRecipe, map[string]any{})
	assert.True(t, errors.Is(err, common.ErrInvalidPayload))
	assert.Contains(t, err.Error(), `missing field "name"`)

	_, err = DecodePayload(TypeQuantity, map[string]any{"amount": "two", "unitId": "u1"})
	assert.True(t, errors.Is(err, common.ErrInvalidPayload))

	_, err = DecodePayload(TypeQuantity, map[string]any{"amount": 1.0})
	assert.True(t, errors.Is(err, common.ErrInvalidPayload))

	_, err = DecodePayload(TypeUnit, map[string]any{"name": "x", "symbol": "x", "measurementType": "LENGTH"})
	assert.True(t, errors.Is(err, common.ErrInvalidPayload))

	_, err = DecodePayload(TypeRecipe, map[string]any{"name": ""})
	assert.True(t, errors.Is(err, common.ErrInvalidPayload))
}

func TestChecksum_DeterministicAndFieldSensitive(t *testing.T) {
	a := Checksum(Recipe{Name: "Pancakes"})
	b := Checksum(Recipe{Name: "Pancakes"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Checksum(Recipe{Name: "Waffles"}))
	assert.NotEqual(t, a, Checksum(Ingredient{Name: "Pancakes"}))
}

func TestChecksum_SurvivesWireDecoding(t *testing.T) {
	local := Quantity{Amount: 2, UnitID: "u1"}

	raw, err := json.Marshal(local.ToMap())
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))

	decoded, err := DecodePayload(TypeQuantity, wire)
	require.NoError(t, err)
	assert.Equal(t, Checksum(local), Checksum(decoded))
}

func TestSnapshot_SplitsVersion(t *testing.T) {
	snap := Snapshot(Unit{Name: "Gram", Symbol: "g", MeasurementType: MeasurementWeight, BaseConversionFactor: 1}, 4)
	assert.Equal(t, int64(4), snap[VersionKey])

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))

	data, version := SplitSnapshot(wire)
	assert.Equal(t, int64(4), version)
	_, hasVersion := data[VersionKey]
	assert.False(t, hasVersion)
	assert.Equal(t, "Gram", data["name"])
}

func TestEntityType_Rank(t *testing.T) {
	assert.Less(t, TypeUnit.Rank(), TypeQuantity.Rank())
	assert.Less(t, TypeRecipe.Rank(), TypeRecipeIngredient.Rank())
	assert.Equal(t, -1, EntityType("SPICE").Rank())
	assert.False(t, EntityType("").Valid())
}
