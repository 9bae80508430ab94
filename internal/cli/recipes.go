package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/recipebox/internal/cookbook"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

func newListCmd(s *session) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active recipes",
		Long: `List prints the active recipes in stored order.

--search keeps recipes whose title, ingredients, or tags contain the term,
ignoring case.

Example:
  recipebox list
  recipebox list --search chicken`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cb, closeFn, err := s.openCookbook(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			recipes := cb.Search(search)
			if s.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), recipes)
			}
			printRecipeTable(cmd.OutOrStdout(), recipes, "No recipes found.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by title, ingredient, or tag")
	return cmd
}

func newBinCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "bin",
		Short: "List recipes in the recycle bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cb, closeFn, err := s.openCookbook(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			recipes := cb.Deleted()
			if s.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), recipes)
			}
			printRecipeTable(cmd.OutOrStdout(), recipes, "Recycle Bin is empty.")
			return nil
		},
	}
}

func newShowCmd(s *session) *cobra.Command {
	var byTitle bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Display a recipe with full details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cb, closeFn, err := s.openCookbook(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveTarget(cb, types.StateActive, args[0], byTitle)
			if err != nil {
				return err
			}
			recipe, err := cb.Get(id)
			if err != nil {
				return err
			}
			if s.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), recipe)
			}
			printRecipeCard(cmd.OutOrStdout(), recipe)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byTitle, "title", false, "treat the argument as a recipe title")
	return cmd
}

func newAddCmd(s *session) *cobra.Command {
	var (
		in           types.RecipeInput
		ingredients  []string
		instructions []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recipe",
		Long: `Add appends a new recipe to the active collection.

A title, at least one ingredient, and at least one instruction are required.
--ingredient and --instruction may be repeated; each value may also hold
several lines.

Example:
  recipebox add --title "Miso Soup" \
    --ingredient Miso --ingredient Tofu \
    --instruction "Boil water" --instruction "Whisk in miso" \
    --tags "Vegan, Quick"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Ingredients = strings.Join(ingredients, "\n")
			in.Instructions = strings.Join(instructions, "\n")
			if _, err := in.Recipe(); err != nil {
				return err
			}

			cb, closeFn, err := s.openCookbookForWrite(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			recipe, err := cb.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			if s.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), recipe)
			}
			ok(cmd.OutOrStdout(), fmt.Sprintf("%q added successfully (%s)", recipe.Title, recipe.ID))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "recipe title")
	f.StringVar(&in.ReadyIn, "ready-in", "", "time to make, e.g. \"30 minutes\"")
	f.StringVar(&in.Servings, "servings", "", "yield, e.g. 2")
	f.StringVar(&in.Temperature, "temperature", "", "oven temperature, e.g. 375°F")
	f.StringArrayVar(&ingredients, "ingredient", nil, "ingredient line (repeatable)")
	f.StringArrayVar(&instructions, "instruction", nil, "instruction step (repeatable)")
	f.StringVar(&in.Notes, "notes", "", "notes or source")
	f.StringVar(&in.Tags, "tags", "", "comma-separated tags")
	return cmd
}

// resolveTarget returns the recipe ID named by arg. With byTitle, arg is a
// title and the first recipe in state with that title is used.
func resolveTarget(cb *cookbook.Cookbook, state, arg string, byTitle bool) (string, error) {
	if !byTitle {
		return arg, nil
	}
	r, err := cb.FindByTitle(state, arg)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}
