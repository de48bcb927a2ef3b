package entities

import (
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps one entity type onto its SQLite table.
type table struct {
	name    string
	columns []string
	values  func(p syncproto.Payload) []any
	scan    func(s scanner) (string, syncproto.Payload, error)
}

var tables = map[syncproto.EntityType]table{
	syncproto.TypeRecipe: {
		name:    "recipes",
		columns: []string{"name"},
		values: func(p syncproto.Payload) []any {
			r := p.(syncproto.Recipe)
			return []any{r.Name}
		},
		scan: func(s scanner) (string, syncproto.Payload, error) {
			var id string
			var r syncproto.Recipe
			err := s.Scan(&id, &r.Name)
			return id, r, err
		},
	},
	syncproto.TypeIngredient: {
		name:    "ingredients",
		columns: []string{"name"},
		values: func(p syncproto.Payload) []any {
			i := p.(syncproto.Ingredient)
			return []any{i.Name}
		},
		scan: func(s scanner) (string, syncproto.Payload, error) {
			var id string
			var i syncproto.Ingredient
			err := s.Scan(&id, &i.Name)
			return id, i, err
		},
	},
	syncproto.TypeUnit: {
		name:    "units",
		columns: []string{"name", "symbol", "measurement_type", "base_conversion_factor"},
		values: func(p syncproto.Payload) []any {
			u := p.(syncproto.Unit)
			return []any{u.Name, u.Symbol, string(u.MeasurementType), u.BaseConversionFactor}
		},
		scan: func(s scanner) (string, syncproto.Payload, error) {
			var id, mt string
			var u syncproto.Unit
			err := s.Scan(&id, &u.Name, &u.Symbol, &mt, &u.BaseConversionFactor)
			u.MeasurementType = syncproto.MeasurementType(mt)
			return id, u, err
		},
	},
	syncproto.TypeQuantity: {
		name:    "quantities",
		columns: []string{"amount", "unit_id"},
		values: func(p syncproto.Payload) []any {
			q := p.(syncproto.Quantity)
			return []any{q.Amount, q.UnitID}
		},
		scan: func(s scanner) (string, syncproto.Payload, error) {
			var id string
			var q syncproto.Quantity
			err := s.Scan(&id, &q.Amount, &q.UnitID)
			return id, q, err
		},
	},
	syncproto.TypeRecipeIngredient: {
		name:    "recipe_ingredients",
		columns: []string{"recipe_id", "ingredient_id", "quantity_id"},
		values: func(p syncproto.Payload) []any {
			ri := p.(syncproto.RecipeIngredient)
			return []any{ri.RecipeID, ri.IngredientID, sql.NullString{String: ri.QuantityID, Valid: ri.QuantityID != ""}}
		},
		scan: func(s scanner) (string, syncproto.Payload, error) {
			var id string
			var ri syncproto.RecipeIngredient
			var qid sql.NullString
			err := s.Scan(&id, &ri.RecipeID, &ri.IngredientID, &qid)
			ri.QuantityID = qid.String
			return id, ri, err
		},
	},
}

func tableFor(t syncproto.EntityType) (table, error) {
	tb, ok := tables[t]
	if !ok {
		return table{}, fmt.Errorf("%w: %q", common.ErrUnknownEntityType, t)
	}
	return tb, nil
}
