package syncproto

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recipesync/internal/checksum"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/go-playground/validator/v10"
)

// Payload is the typed content of one entity. The concrete types are
// Recipe, Ingredient, Unit, Quantity and RecipeIngredient; maps only appear
// at the JSON boundary via ToMap and DecodePayload.
type Payload interface {
	EntityType() EntityType
	ToMap() map[string]any
	isPayload()
}

type Recipe struct {
	Name string `validate:"required"`
}

type Ingredient struct {
	Name string `validate:"required"`
}

type MeasurementType string

const (
	MeasurementWeight MeasurementType = "WEIGHT"
	MeasurementVolume MeasurementType = "VOLUME"
	MeasurementCount  MeasurementType = "COUNT"
)

type Unit struct {
	Name                 string          `validate:"required"`
	Symbol               string          `validate:"required"`
	MeasurementType      MeasurementType `validate:"oneof=WEIGHT VOLUME COUNT"`
	BaseConversionFactor float64         `validate:"gt=0"`
}

// Quantity references its unit by the unit's localId.
type Quantity struct {
	Amount float64 `validate:"gte=0"`
	UnitID string  `validate:"required"`
}

// RecipeIngredient links a recipe to an ingredient, optionally with a
// quantity. All references are localIds.
type RecipeIngredient struct {
	RecipeID     string `validate:"required"`
	IngredientID string `validate:"required"`
	QuantityID   string
}

func (Recipe) EntityType() EntityType           { return TypeRecipe }
func (Ingredient) EntityType() EntityType       { return TypeIngredient }
func (Unit) EntityType() EntityType             { return TypeUnit }
func (Quantity) EntityType() EntityType         { return TypeQuantity }
func (RecipeIngredient) EntityType() EntityType { return TypeRecipeIngredient }

func (Recipe) isPayload()           {}
func (Ingredient) isPayload()       {}
func (Unit) isPayload()             {}
func (Quantity) isPayload()         {}
func (RecipeIngredient) isPayload() {}

func (p Recipe) ToMap() map[string]any {
	return map[string]any{"name": p.Name}
}

func (p Ingredient) ToMap() map[string]any {
	return map[string]any{"name": p.Name}
}

func (p Unit) ToMap() map[string]any {
	return map[string]any{
		"name":                 p.Name,
		"symbol":               p.Symbol,
		"measurementType":      string(p.MeasurementType),
		"baseConversionFactor": p.BaseConversionFactor,
	}
}

func (p Quantity) ToMap() map[string]any {
	return map[string]any{"amount": p.Amount, "unitId": p.UnitID}
}

func (p RecipeIngredient) ToMap() map[string]any {
	m := map[string]any{"recipeId": p.RecipeID, "ingredientId": p.IngredientID}
	if p.QuantityID != "" {
		m["quantityId"] = p.QuantityID
	}
	return m
}

// NewUnit fills the defaults the server and the client agree on.
func NewUnit(name, symbol string) Unit {
	return Unit{Name: name, Symbol: symbol, MeasurementType: MeasurementCount, BaseConversionFactor: 1.0}
}

var validate = validator.New()

// Validate checks the payload's field constraints.
func Validate(p Payload) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s: %s", common.ErrInvalidPayload, p.EntityType(), describe(err))
	}
	return nil
}

// DecodePayload converts wire data for entity type t into its typed payload
// and validates it.
func DecodePayload(t EntityType, data map[string]any) (Payload, error) {
	f := fields{data: data}
	var p Payload

	switch t {
	case TypeRecipe:
		p = Recipe{Name: f.str("name")}
	case TypeIngredient:
		p = Ingredient{Name: f.str("name")}
	case TypeUnit:
		u := NewUnit(f.str("name"), f.str("symbol"))
		if mt := f.optStr("measurementType"); mt != "" {
			u.MeasurementType = MeasurementType(strings.ToUpper(mt))
		}
		if v, ok := f.optNum("baseConversionFactor"); ok {
			u.BaseConversionFactor = v
		}
		p = u
	case TypeQuantity:
		p = Quantity{Amount: f.num("amount"), UnitID: f.str("unitId")}
	case TypeRecipeIngredient:
		p = RecipeIngredient{
			RecipeID:     f.str("recipeId"),
			IngredientID: f.str("ingredientId"),
			QuantityID:   f.optStr("quantityId"),
		}
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownEntityType, t)
	}

	if f.err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidPayload, t, f.err)
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Checksum is the content digest of p shared by client and server.
func Checksum(p Payload) string {
	return checksum.Sum("recipesync/"+string(p.EntityType())+"/v1", p.ToMap())
}

// fields reads typed values out of a wire map, keeping the first error.
type fields struct {
	data map[string]any
	err  error
}

func (f *fields) fail(format string, args ...any) {
	if f.err == nil {
		f.err = fmt.Errorf(format, args...)
	}
}

func (f *fields) str(key string) string {
	v, ok := f.data[key]
	if !ok || v == nil {
		f.fail("missing field %q", key)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail("field %q must be a string, got %T", key, v)
	}
	return s
}

func (f *fields) optStr(key string) string {
	if v, ok := f.data[key]; !ok || v == nil {
		return ""
	}
	return f.str(key)
}

func (f *fields) num(key string) float64 {
	v, ok := f.optNum(key)
	if !ok {
		f.fail("missing field %q", key)
	}
	return v
}

func (f *fields) optNum(key string) (float64, bool) {
	v, ok := f.data[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			f.fail("field %q is not a number: %v", key, err)
		}
		return x, true
	default:
		f.fail("field %q must be a number, got %T", key, v)
		return 0, true
	}
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
