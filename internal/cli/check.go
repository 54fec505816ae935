package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-onboarding/pkg/registry"
)

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir...]",
		Short: "Validate role schema files",
		Long: `Load role schemas and report structural problems.

Without arguments the bundled schemas and the configured schema directory
are checked together. Each directory argument is checked on its own.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				env, err := app.load(cmd)
				if err != nil {
					return err
				}
				report(cmd, env.registry)
				return nil
			}

			var failed int
			for _, dir := range args {
				reg := registry.New()
				if err := reg.LoadFS(os.DirFS(dir)); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", dir, err)
					failed++
					continue
				}
				report(cmd, reg)
			}
			if failed > 0 {
				return fmt.Errorf("%d schema director(ies) failed validation", failed)
			}
			return nil
		},
	}
}

func report(cmd *cobra.Command, reg *registry.Registry) {
	for _, role := range reg.Roles() {
		schema, err := reg.Schema(role)
		if err != nil {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d steps, %d fields)\n", role, schema.StepCount(), len(schema.Fields()))
	}
}
