package cli

import (
	"errors"
	"time"

	"recording-relay/internal/auth"
	"recording-relay/internal/config"
	"recording-relay/internal/rbac"

	"github.com/spf13/cobra"
)

type tokenOptions struct {
	secret   string
	issuer   string
	audience string
	ttl      time.Duration
	userID   string
	email    string
	role     string
}

func newTokenCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage device and operator tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(root))
	return cmd
}

func newTokenIssueCommand(root *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token",
		Long: `Issue an access/refresh token pair signed with JWT_SECRET.

A device token (role "device") can be set as DEVICE_TOKEN or posted to
/v1/session; its email decides whether uploads are authorized. The refresh
token is exchanged for a new pair at /v1/session/refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenIssue(root, opts, cmd, time.Now())
		},
	}

	cmd.Flags().StringVar(&opts.secret, "secret", envOr("JWT_SECRET", ""), "signing secret (default $JWT_SECRET)")
	cmd.Flags().StringVar(&opts.issuer, "issuer", envOr("JWT_ISSUER", ""), "token issuer (default $JWT_ISSUER)")
	cmd.Flags().StringVar(&opts.audience, "audience", envOr("JWT_AUDIENCE", ""), "token audience (default $JWT_AUDIENCE)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "access token lifetime")
	cmd.Flags().StringVar(&opts.userID, "user-id", "", "subject user id")
	cmd.Flags().StringVar(&opts.email, "email", "", "principal email")
	cmd.Flags().StringVar(&opts.role, "role", rbac.RoleDevice, "role (device|operator|super_admin)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func runTokenIssue(root *RootOptions, opts *tokenOptions, cmd *cobra.Command, now time.Time) error {
	if !rbac.IsKnownRole(opts.role) {
		return errors.New("unknown role " + opts.role)
	}
	if opts.ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       opts.secret,
		JWTIssuer:       opts.issuer,
		JWTAudience:     opts.audience,
		AccessTokenTTL:  opts.ttl,
		RefreshTokenTTL: 30 * opts.ttl,
	})
	if err != nil {
		return err
	}

	pair, err := m.IssuePair(now, auth.Principal{UserID: opts.userID, Email: opts.email, Role: opts.role})
	if err != nil {
		return err
	}

	p := printer{format: root.Format, w: cmd.OutOrStdout()}
	if p.isJSON() {
		return p.json(map[string]any{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"expires_at":    now.Add(opts.ttl).UTC(),
		})
	}
	p.linef("%s", pair.AccessToken)
	return nil
}
