package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetSecret prints prompt to w and reads a line from the terminal without
// echo.
func GetSecret(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// typeNames maps the names accepted on the command line to entity types.
var typeNames = map[string]syncproto.EntityType{
	"recipe":            syncproto.TypeRecipe,
	"recipes":           syncproto.TypeRecipe,
	"ingredient":        syncproto.TypeIngredient,
	"ingredients":       syncproto.TypeIngredient,
	"unit":              syncproto.TypeUnit,
	"units":             syncproto.TypeUnit,
	"quantity":          syncproto.TypeQuantity,
	"quantities":        syncproto.TypeQuantity,
	"link":              syncproto.TypeRecipeIngredient,
	"links":             syncproto.TypeRecipeIngredient,
	"recipe_ingredient": syncproto.TypeRecipeIngredient,
}

func parseType(s string) (syncproto.EntityType, error) {
	t, ok := typeNames[strings.ToLower(s)]
	if !ok {
		return "", fmt.Errorf("unknown entity type %q (want recipe, ingredient, unit, quantity or link)", s)
	}
	return t, nil
}
