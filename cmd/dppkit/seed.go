package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/seed"
)

func newSeedCmd(envFile *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load plans, models, registry entries and trial overrides from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				doc, err := readSeedFile(args[0])
				if err != nil {
					return err
				}
				if err := seed.Validate(manifest.Default(), doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
				return nil
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.close()

			sum, err := applySeedFile(ctx, a, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"registry entries: %d\nplans: %d\nmodels: %d\nfeature overrides: %d\nentitlement overrides: %d\n",
				sum.RegistryEntries, sum.Plans, sum.Models, sum.FeatureOverrides, sum.EntitlementOverrides,
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}

func readSeedFile(path string) (*seed.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return seed.Load(f)
}

func applySeedFile(ctx context.Context, a *app, path string) (seed.Summary, error) {
	doc, err := readSeedFile(path)
	if err != nil {
		return seed.Summary{}, err
	}
	return a.seeder().Apply(ctx, doc)
}
