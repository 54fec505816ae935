package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-onboarding/pkg/wizard"
)

func newRolesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the roles that can be onboarded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := app.load(cmd)
			if err != nil {
				return err
			}
			catalog := wizard.StaticCatalog(env.cfg.EnabledRoles)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, role := range catalog.Roles() {
				schema, err := env.registry.Resolve(role)
				if err != nil {
					fmt.Fprintf(w, "%s\t(unavailable)\n", role)
					continue
				}
				label := schema.Label
				if _, err := env.registry.Schema(role); err != nil {
					label += " (generic)"
				}
				fmt.Fprintf(w, "%s\t%s\t%d steps\n", role, label, schema.StepCount())
			}
			return w.Flush()
		},
	}
}
