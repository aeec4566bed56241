/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/config"
	"github.com/smartassist/apiserver/internal/db"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
	"github.com/spf13/cobra"
)

// userCmd groups account maintenance commands that run against the database
// directly.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var promoteRole string

var userPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Change the role of the account registered with email",
	Long: `Change the role of an account. This is how the first admin is created:

	smartassist user promote admin@example.com
	smartassist user promote someone@example.com --role user
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := types.ParseRole(promoteRole)
		if err != nil {
			return err
		}
		if role == types.RoleGuest {
			return errors.New("guest is not an assignable role")
		}

		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		email := strings.ToLower(strings.TrimSpace(args[0]))
		user, err := store.NewUserRepository(conn).UpdateRoleByEmail(cmd.Context(), email, role)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no user registered with %s", email)
		}
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email, "role": user.Role}).Info("role updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPromoteCmd)

	userPromoteCmd.Flags().StringVar(&promoteRole, "role", string(types.RoleAdmin), "role to assign")
}
