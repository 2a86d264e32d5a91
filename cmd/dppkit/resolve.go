package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/manifest"
)

type resolveOutput struct {
	OrganizationID uuid.UUID             `json:"organization_id"`
	Features       []capability.Decision `json:"features"`
	Entitlements   []capability.Grant    `json:"entitlements"`
}

func newResolveCmd(envFile *string) *cobra.Command {
	var (
		orgID   string
		feature string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the features and entitlements an organization resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.close()

			subject := capability.Subject{OrganizationID: id}
			out := resolveOutput{OrganizationID: id}
			if feature != "" {
				d, err := a.resolver.ExplainFeature(ctx, manifest.Key(feature), subject)
				if err != nil {
					return err
				}
				out.Features = []capability.Decision{d}
			} else {
				if out.Features, err = a.resolver.ExplainFeatures(ctx, subject); err != nil {
					return err
				}
				if out.Entitlements, err = a.resolver.ResolveEntitlements(ctx, subject); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization id")
	cmd.Flags().StringVar(&feature, "feature", "", "explain a single feature")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
