package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/recipebox/internal/cookbook"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// transition describes a by-ID cookbook operation exposed as a command.
type transition struct {
	use    string
	short  string
	state  string // state the target must be in when looked up by title
	notice string
	apply  func(cb *cookbook.Cookbook, ctx context.Context, id string) (*types.Recipe, error)
}

func newDeleteCmd(s *session) *cobra.Command {
	return newTransitionCmd(s, transition{
		use:    "delete <id>",
		short:  "Move a recipe to the recycle bin",
		state:  types.StateActive,
		notice: "%q moved to Recycle Bin",
		apply:  (*cookbook.Cookbook).Delete,
	})
}

func newRestoreCmd(s *session) *cobra.Command {
	return newTransitionCmd(s, transition{
		use:    "restore <id>",
		short:  "Restore a recipe from the recycle bin",
		state:  types.StateDeleted,
		notice: "%q restored",
		apply:  (*cookbook.Cookbook).Restore,
	})
}

func newPurgeCmd(s *session) *cobra.Command {
	return newTransitionCmd(s, transition{
		use:    "purge <id>",
		short:  "Permanently delete a recipe from the recycle bin",
		state:  types.StateDeleted,
		notice: "%q permanently deleted",
		apply:  (*cookbook.Cookbook).Purge,
	})
}

func newTransitionCmd(s *session, t transition) *cobra.Command {
	var byTitle bool
	cmd := &cobra.Command{
		Use:   t.use,
		Short: t.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cb, closeFn, err := s.openCookbookForWrite(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveTarget(cb, t.state, args[0], byTitle)
			if err != nil {
				return err
			}
			recipe, err := t.apply(cb, cmd.Context(), id)
			if err != nil {
				return err
			}
			if s.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), recipe)
			}
			ok(cmd.OutOrStdout(), fmt.Sprintf(t.notice, recipe.DisplayTitle()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&byTitle, "title", false, "treat the argument as a recipe title")
	return cmd
}

func newRateCmd(s *session) *cobra.Command {
	var byTitle bool
	cmd := &cobra.Command{
		Use:   "rate <id> <1-5>",
		Short: "Add a rating to a recipe",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stars, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: rating %q is not a number", errUsage, args[1])
			}

			cb, closeFn, err := s.openCookbookForWrite(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveTarget(cb, types.StateActive, args[0], byTitle)
			if err != nil {
				return err
			}
			recipe, err := cb.Rate(cmd.Context(), id, stars)
			if err != nil {
				return err
			}
			if s.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), recipe)
			}
			ok(cmd.OutOrStdout(), fmt.Sprintf("Thanks! You rated %s %d ⭐  average %s", recipe.DisplayTitle(), stars, recipe.RatingSummary()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&byTitle, "title", false, "treat the first argument as a recipe title")
	return cmd
}
