// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"fmt"

	"reliefapp/internal/observability"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/spf13/cobra"
)

// OrgCommands returns the organization management commands
func OrgCommands(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	orgCmd := &cobra.Command{
		Use:   "org",
		Short: "Organization management commands",
		Long: `Organization management commands for the relief reporting application.

Available commands:
  create - Create a new organization`,
	}

	orgCmd.AddCommand(createOrgCmd(userService, logger))

	return orgCmd
}

// createOrgCmd returns the create command
func createOrgCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create an organization",
		Long:  `Create a new organization. Users and reports always belong to exactly one organization.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			org, err := userService.CreateOrganization(ctx, args[0])
			if err != nil {
				logger.Error(ctx, "Failed to create organization", err, map[string]interface{}{"name": args[0]})
				return contextutils.WrapErrorf(err, "failed to create organization %q", args[0])
			}

			fmt.Printf("Created organization %q (ID: %d)\n", org.Name, org.ID)
			logger.Info(ctx, "Organization created", map[string]interface{}{
				"organization_id": org.ID,
				"name":            org.Name,
			})
			return nil
		},
	}
}
