package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coc-admin/platform/internal/shared/auth"
	"github.com/coc-admin/platform/internal/shared/types"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed development token",
	Long: `Issue an HS256 token signed with JWT_SECRET for local testing of the
role checks. Refused when ENV=production.`,
	RunE: runToken,
}

var tokenFlags struct {
	subject string
	name    string
	roles   []string
	office  string
	ttl     time.Duration
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenFlags.subject, "sub", "", "user ID (a new ID when empty)")
	f.StringVar(&tokenFlags.name, "name", "", "display name")
	f.StringSliceVar(&tokenFlags.roles, "role", []string{auth.RoleImporter}, "role, repeatable")
	f.StringVar(&tokenFlags.office, "office", "", "office code for agents and supervisors")
	f.DurationVar(&tokenFlags.ttl, "ttl", 8*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Server.Env == "production" {
		return errors.New("token: development tokens are disabled in production")
	}

	id := types.NewID()
	if tokenFlags.subject != "" {
		if id, err = types.ParseID(tokenFlags.subject); err != nil {
			return fmt.Errorf("token: invalid --sub: %w", err)
		}
	}

	token, err := auth.IssueToken(cfg.Auth, auth.User{
		ID:     id,
		Name:   tokenFlags.name,
		Roles:  tokenFlags.roles,
		Office: tokenFlags.office,
	}, tokenFlags.ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
