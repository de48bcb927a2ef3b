package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/spf13/cobra"
)

func newAddCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a catalogue entry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "recipe <name>",
		Short: "Add a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			return app.create(cmd, syncproto.Recipe{Name: args[0]})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ingredient <name>",
		Short: "Add an ingredient",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			return app.create(cmd, syncproto.Ingredient{Name: args[0]})
		}),
	})

	cmd.AddCommand(newAddUnitCommand(opts))
	cmd.AddCommand(newAddQuantityCommand(opts))
	cmd.AddCommand(newAddLinkCommand(opts))
	return cmd
}

func newAddUnitCommand(opts *RootOptions) *cobra.Command {
	var (
		measurement string
		factor      float64
	)

	cmd := &cobra.Command{
		Use:   "unit <name> <symbol>",
		Short: "Add a unit of measurement",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			u := syncproto.NewUnit(args[0], args[1])
			u.MeasurementType = syncproto.MeasurementType(strings.ToUpper(measurement))
			u.BaseConversionFactor = factor
			return app.create(cmd, u)
		}),
	}

	cmd.Flags().StringVar(&measurement, "type", string(syncproto.MeasurementCount), "WEIGHT, VOLUME or COUNT")
	cmd.Flags().Float64Var(&factor, "factor", 1.0, "conversion factor to the base unit")
	return cmd
}

func newAddQuantityCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quantity <amount> <unit-id>",
		Short: "Add an amount of a unit",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			if err := app.requireEntity(cmd.Context(), syncproto.TypeUnit, args[1]); err != nil {
				return err
			}
			return app.create(cmd, syncproto.Quantity{Amount: amount, UnitID: args[1]})
		}),
	}
}

func newAddLinkCommand(opts *RootOptions) *cobra.Command {
	var quantityID string

	cmd := &cobra.Command{
		Use:   "link <recipe-id> <ingredient-id>",
		Short: "Add an ingredient to a recipe",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			ctx := cmd.Context()
			if err := app.requireEntity(ctx, syncproto.TypeRecipe, args[0]); err != nil {
				return err
			}
			if err := app.requireEntity(ctx, syncproto.TypeIngredient, args[1]); err != nil {
				return err
			}
			if quantityID != "" {
				if err := app.requireEntity(ctx, syncproto.TypeQuantity, quantityID); err != nil {
					return err
				}
			}
			return app.create(cmd, syncproto.RecipeIngredient{
				RecipeID:     args[0],
				IngredientID: args[1],
				QuantityID:   quantityID,
			})
		}),
	}

	cmd.Flags().StringVar(&quantityID, "quantity", "", "quantity id")
	return cmd
}

func (a *App) create(cmd *cobra.Command, p syncproto.Payload) error {
	e, err := a.entities.Create(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), e.LocalID)
	return nil
}

func (a *App) requireEntity(ctx context.Context, t syncproto.EntityType, id string) error {
	if _, err := a.entities.GetByID(ctx, t, id); err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(string(t)), id, err)
	}
	return nil
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List entries of one type with their sync status",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			items, err := app.entities.GetAllWithStatus(cmd.Context(), t)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tVERSION\tSERVER ID\tDATA")
			for _, it := range items {
				status, version, server := "-", "-", "-"
				if it.Sync != nil {
					status = string(it.Sync.Status)
					if it.Sync.IsPinned {
						status += " (pinned)"
					}
					version = strconv.FormatInt(it.Sync.Version, 10)
					if it.Sync.ServerID != nil {
						server = strconv.FormatInt(*it.Sync.ServerID, 10)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.LocalID, status, version, server, describe(it.Data))
			}
			return w.Flush()
		}),
	}
}

// describe renders a payload on one line.
func describe(p syncproto.Payload) string {
	switch p := p.(type) {
	case syncproto.Recipe:
		return p.Name
	case syncproto.Ingredient:
		return p.Name
	case syncproto.Unit:
		return fmt.Sprintf("%s (%s, %s x%g)", p.Name, p.Symbol, p.MeasurementType, p.BaseConversionFactor)
	case syncproto.Quantity:
		return fmt.Sprintf("%g of unit %s", p.Amount, p.UnitID)
	case syncproto.RecipeIngredient:
		s := fmt.Sprintf("recipe %s <- ingredient %s", p.RecipeID, p.IngredientID)
		if p.QuantityID != "" {
			s += ", quantity " + p.QuantityID
		}
		return s
	default:
		return fmt.Sprint(p)
	}
}

func newRenameCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <type> <id> <name>",
		Short: "Rename a recipe, ingredient or unit",
		Args:  cobra.ExactArgs(3),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			e, err := app.entities.GetByID(cmd.Context(), t, args[1])
			if err != nil {
				return err
			}
			if err := rename(e, args[2]); err != nil {
				return err
			}
			return app.entities.Update(cmd.Context(), *e)
		}),
	}
}

func rename(e *models.Entity, name string) error {
	switch p := e.Data.(type) {
	case syncproto.Recipe:
		p.Name = name
		e.Data = p
	case syncproto.Ingredient:
		p.Name = name
		e.Data = p
	case syncproto.Unit:
		p.Name = name
		e.Data = p
	default:
		return fmt.Errorf("a %s has no name", strings.ToLower(string(e.Type())))
	}
	return nil
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete an entry from the local catalogue",
		Long:  "Delete an entry from the local catalogue. Deletions are not sent to the server.",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, app *App, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			return app.entities.Delete(cmd.Context(), t, args[1])
		}),
	}
}
