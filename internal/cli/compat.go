package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/version"
)

// compatCommand creates the compat command.
func (c *CLI) compatCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "compat <a> <b>",
		Short: "Check whether two version constraints can be satisfied together",
		Long: `Check whether some version satisfies both constraints.

Constraints use Poetry's syntax ("^1.2", "~1.2", ">=1.0,<2.0", "1.2.*") and
PEP 440 spellings ("==1.2", "~=1.2"). A constraint that cannot be parsed is
reported as compatible with a warning, the same way sync treats it.`,
		Example: `  monopy compat "^2.0" ">=2.5"
  monopy compat "^1.0" "^2.0" --strict`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b := args[0], args[1]
			printKeyValue("a", a+StyleDim.Render("  ("+version.Normalize(a)+")"))
			printKeyValue("b", b+StyleDim.Render("  ("+version.Normalize(b)+")"))

			if (version.Checker{Logger: c.Logger}).Compatible("", a, b) {
				printSuccess("Compatible")
				return nil
			}
			printError("Incompatible")
			if strict {
				return errors.New(errors.ErrCodeConflict, "%s and %s have no version in common", a, b)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the constraints are incompatible")
	return cmd
}
