package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"reliefapp/internal/observability"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the relief reporting application.

Available commands:
  list           - List users in an organization
  create         - Create a user in an organization
  reset-password - Reset password for a specific user`,
	}

	userCmd.AddCommand(listCmd(userService, logger, databaseURL))
	userCmd.AddCommand(createUserCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))

	return userCmd
}

// listCmd returns the list command
func listCmd(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "list [organization]",
		Short: "List users in an organization",
		Long:  `List the users of an organization with their basic information.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runListUsers(userService, logger, databaseURL),
	}
}

// createUserCmd returns the create command
func createUserCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	var displayName string
	var email string
	var roles []string

	cmd := &cobra.Command{
		Use:   "create [organization] [username]",
		Short: "Create a user",
		Long:  `Create a user inside an organization. The password is prompted for interactively.`,
		Args:  cobra.ExactArgs(2),
		RunE:  runCreateUser(userService, logger, &displayName, &email, &roles),
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name shown on exports")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to assign (repeatable)")

	return cmd
}

// resetPasswordCmd returns the reset-password command
func resetPasswordCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [username]",
		Short: "Reset password for a user",
		Long:  `Reset the password for a specific user. If username is not provided, you will be prompted for it.`,
		RunE:  runResetPassword(userService, logger),
	}
}

// promptPassword reads a password twice from the terminal without echo
func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	fmt.Println()

	password := string(passwordBytes)
	if password == "" {
		return "", contextutils.ErrorWithContextf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password confirmation: %v", err)
	}
	fmt.Println()

	if password != string(confirmBytes) {
		return "", contextutils.ErrorWithContextf("passwords do not match")
	}
	return password, nil
}

// runListUsers returns a function that lists an organization's users
func runListUsers(userService *services.UserService, logger *observability.Logger, databaseURL string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{"config_file": os.Getenv("RELIEF_CONFIG_FILE"), "database_url": maskDatabaseURL(databaseURL)})

		org, err := userService.GetOrganizationByName(ctx, args[0])
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to find organization %q", args[0])
		}

		users, err := userService.GetUsersByOrganization(ctx, org.ID)
		if err != nil {
			logger.Error(ctx, "Failed to get users", err, map[string]interface{}{"organization_id": org.ID})
			return contextutils.WrapError(err, "failed to get users")
		}

		if len(users) == 0 {
			logger.Info(ctx, "No users found in the organization", map[string]interface{}{"organization": org.Name})
			return nil
		}

		fmt.Printf("%-5s %-20s %-30s %-25s %-12s\n", "ID", "Username", "Email", "Display Name", "Created")
		fmt.Println(strings.Repeat("-", 95))

		for _, user := range users {
			email := "N/A"
			if user.Email.Valid {
				email = user.Email.String
			}

			fmt.Printf("%-5d %-20s %-30s %-25s %-12s\n",
				user.ID,
				user.Username,
				email,
				user.Name(),
				user.CreatedAt.Format("2006-01-02"),
			)
		}

		logger.Info(ctx, "Listed users", map[string]interface{}{"organization": org.Name, "total": len(users)})
		return nil
	}
}

// runCreateUser returns a function that creates a user
func runCreateUser(userService *services.UserService, logger *observability.Logger, displayName, email *string, roles *[]string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		orgName, username := args[0], args[1]

		org, err := userService.GetOrganizationByName(ctx, orgName)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to find organization %q", orgName)
		}

		password, err := promptPassword()
		if err != nil {
			return err
		}

		user, err := userService.CreateUserWithPassword(ctx, org.ID, username, password, *displayName, *email)
		if err != nil {
			logger.Error(ctx, "Failed to create user", err, map[string]interface{}{
				"username":     username,
				"organization": orgName,
			})
			return contextutils.WrapErrorf(err, "failed to create user %q", username)
		}

		for _, role := range *roles {
			if err := userService.AssignRoleByName(ctx, user.ID, role); err != nil {
				return contextutils.WrapErrorf(err, "failed to assign role %q", role)
			}
		}

		fmt.Printf("Created user %q (ID: %d) in organization %q\n", username, user.ID, org.Name)
		logger.Info(ctx, "User created", map[string]interface{}{
			"username":        username,
			"user_id":         user.ID,
			"organization_id": org.ID,
		})
		return nil
	}
}

// runResetPassword returns a function that resets a user's password
func runResetPassword(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var username string
		if len(args) > 0 {
			username = args[0]
		} else {
			fmt.Print("Enter username: ")
			if _, err := fmt.Scanln(&username); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read username: %v", err)
			}
		}

		if username == "" {
			return contextutils.ErrorWithContextf("username is required")
		}

		newPassword, err := promptPassword()
		if err != nil {
			return err
		}

		logger.Info(ctx, "Resetting password for user", map[string]interface{}{
			"username": username,
		})

		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get user '%s': %v", username, err)
		}

		if user == nil {
			return contextutils.ErrorWithContextf("user '%s' not found", username)
		}

		if err := userService.UpdateUserPassword(ctx, user.ID, newPassword); err != nil {
			logger.Error(ctx, "Failed to update password", err, map[string]interface{}{
				"username": username,
				"user_id":  user.ID,
			})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to update password for user '%s': %v", username, err)
		}

		fmt.Printf("Password successfully reset for user '%s' (ID: %d)\n", username, user.ID)
		logger.Info(ctx, "Password reset successful", map[string]interface{}{
			"username": username,
			"user_id":  user.ID,
		})

		return nil
	}
}
