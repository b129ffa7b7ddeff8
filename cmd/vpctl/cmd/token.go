package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ambiyansyah-risyal/visualping"
)

type tokenReport struct {
	Subject          string    `json:"subject,omitempty"`
	Email            string    `json:"email,omitempty"`
	ExpiresAt        time.Time `json:"expires_at,omitzero"`
	AccessIssuedAt   time.Time `json:"access_issued_at"`
	RefreshIssuedAt  time.Time `json:"refresh_issued_at"`
	AccessRenewAt    time.Time `json:"access_renew_at"`
	RefreshReloginAt time.Time `json:"refresh_relogin_at"`
	IDToken          string    `json:"id_token,omitempty"`
}

func newTokenCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Log in if needed and describe the current id token",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(cmd *cobra.Command, args []string) error {
			if err := a.client.EnsureAuthenticated(cmd.Context()); err != nil {
				return err
			}
			creds := a.client.Session()
			report := tokenReport{
				AccessIssuedAt:   creds.AccessIssuedAt,
				RefreshIssuedAt:  creds.RefreshIssuedAt,
				AccessRenewAt:    creds.AccessIssuedAt.Add(visualping.AccessTokenTTL),
				RefreshReloginAt: creds.RefreshIssuedAt.Add(visualping.RefreshTokenTTL),
			}
			if info, err := visualping.ParseTokenInfo(creds.AccessToken); err == nil {
				report.Subject = info.Subject
				report.Email = info.Email
				report.ExpiresAt = info.ExpiresAt
			}
			if raw {
				report.IDToken = creds.AccessToken
			}
			return a.printJSON(report)
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "include the id token itself")
	return cmd
}
