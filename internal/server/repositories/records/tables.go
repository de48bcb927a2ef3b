package records

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/server/models"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

type table struct {
	name string
	// query selects the record columns followed by the payload columns,
	// with references translated back to localIds. The main table is "t".
	query string
	// columns are the payload columns written by Create and Update.
	columns []string
}

var tables = map[syncproto.EntityType]table{
	syncproto.TypeUnit: {
		name: "units",
		query: `SELECT t.id, t.local_id, t.version, t.last_modified, t.checksum,
		        t.name, t.symbol, t.measurement_type, t.base_conversion_factor
		   FROM units t`,
		columns: []string{"name", "symbol", "measurement_type", "base_conversion_factor"},
	},
	syncproto.TypeIngredient: {
		name: "ingredients",
		query: `SELECT t.id, t.local_id, t.version, t.last_modified, t.checksum, t.name
		   FROM ingredients t`,
		columns: []string{"name"},
	},
	syncproto.TypeRecipe: {
		name: "recipes",
		query: `SELECT t.id, t.local_id, t.version, t.last_modified, t.checksum, t.name
		   FROM recipes t`,
		columns: []string{"name"},
	},
	syncproto.TypeQuantity: {
		name: "quantities",
		query: `SELECT t.id, t.local_id, t.version, t.last_modified, t.checksum,
		        t.amount, u.local_id
		   FROM quantities t
		   JOIN units u ON u.id = t.unit_id`,
		columns: []string{"amount", "unit_id"},
	},
	syncproto.TypeRecipeIngredient: {
		name: "recipe_ingredients",
		query: `SELECT t.id, t.local_id, t.version, t.last_modified, t.checksum,
		        r.local_id, i.local_id, q.local_id
		   FROM recipe_ingredients t
		   JOIN recipes r ON r.id = t.recipe_id
		   JOIN ingredients i ON i.id = t.ingredient_id
		   LEFT JOIN quantities q ON q.id = t.quantity_id`,
		columns: []string{"recipe_id", "ingredient_id", "quantity_id"},
	},
}

func tableFor(t syncproto.EntityType) (table, error) {
	tbl, ok := tables[t]
	if !ok {
		return table{}, fmt.Errorf("%w: %s", common.ErrUnknownEntityType, t)
	}
	return tbl, nil
}

// insertQuery is INSERT INTO <table> (local_id, version, last_modified,
// checksum, <columns>) VALUES (...) RETURNING id.
func (tbl table) insertQuery() string {
	cols := append([]string{"local_id", "version", "last_modified", "checksum"}, tbl.columns...)
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		tbl.name, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// updateQuery binds the record id to $1.
func (tbl table) updateQuery() string {
	cols := append([]string{"version", "last_modified", "checksum"}, tbl.columns...)
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = fmt.Sprintf("%s = $%d", c, i+2)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", tbl.name, strings.Join(set, ", "))
}

func scanRecord(t syncproto.EntityType, row *sql.Row) (*models.Record, error) {
	rec := &models.Record{}
	dest := []any{&rec.ID, &rec.LocalID, &rec.Version, &rec.LastModified, &rec.Checksum}

	var err error
	switch t {
	case syncproto.TypeRecipe:
		var p syncproto.Recipe
		err = row.Scan(append(dest, &p.Name)...)
		rec.Payload = p
	case syncproto.TypeIngredient:
		var p syncproto.Ingredient
		err = row.Scan(append(dest, &p.Name)...)
		rec.Payload = p
	case syncproto.TypeUnit:
		var p syncproto.Unit
		var mt string
		err = row.Scan(append(dest, &p.Name, &p.Symbol, &mt, &p.BaseConversionFactor)...)
		p.MeasurementType = syncproto.MeasurementType(mt)
		rec.Payload = p
	case syncproto.TypeQuantity:
		var p syncproto.Quantity
		err = row.Scan(append(dest, &p.Amount, &p.UnitID)...)
		rec.Payload = p
	case syncproto.TypeRecipeIngredient:
		var p syncproto.RecipeIngredient
		var quantity sql.NullString
		err = row.Scan(append(dest, &p.RecipeID, &p.IngredientID, &quantity)...)
		p.QuantityID = quantity.String
		rec.Payload = p
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntityType, t)
	}

	if err != nil {
		return nil, err
	}
	return rec, nil
}
