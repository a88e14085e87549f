package main

import (
	"errors"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	identityservice "smartgate/internal/identity/service"
	"smartgate/internal/platform/config"
	"smartgate/internal/platform/logger"
)

const (
	emailFlag     = "email"
	passwordFlag  = "password"
	firstNameFlag = "first-name"
	lastNameFlag  = "last-name"
)

var superuserFlags = map[string]cobraflags.Flag{
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Usage: "Administrator email (required)",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Usage: "Administrator password (required)",
	},
	firstNameFlag: &cobraflags.StringFlag{
		Name:  firstNameFlag,
		Usage: "First name",
	},
	lastNameFlag: &cobraflags.StringFlag{
		Name:  lastNameFlag,
		Usage: "Last name",
	},
}

func newCreateSuperuserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator account",
		RunE:  createSuperuserCommand,
	}
	cobraflags.RegisterMap(cmd, superuserFlags)
	return cmd
}

func createSuperuserCommand(cmd *cobra.Command, _ []string) error {
	email := superuserFlags[emailFlag].GetString()
	password := superuserFlags[passwordFlag].GetString()
	if email == "" || password == "" {
		return errors.New("--email and --password are required")
	}
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.accounts.CreateSuperuser(ctx, email, password,
		identityservice.WithNames(superuserFlags[firstNameFlag].GetString(), superuserFlags[lastNameFlag].GetString()),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (id %s)\n", user.Email, user.ID)
	return nil
}
