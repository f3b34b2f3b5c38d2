package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/caseaccessio/api/internal/config"
)

var configCheckCmd = &cobra.Command{
	Use:   "config-check",
	Short: "Validate environment configuration and the policy file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		policy, err := config.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return fmt.Errorf("policy invalid: %w", err)
		}
		if _, err := policy.Allowlist(); err != nil {
			return fmt.Errorf("group allow-list invalid: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "environment:       %s\n", cfg.App.Env)
		fmt.Fprintf(out, "http:              %s\n", cfg.Server.Addr())
		fmt.Fprintf(out, "database:          %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		fmt.Fprintf(out, "redis:             %s\n", cfg.Redis.Addr())
		fmt.Fprintf(out, "policy file:       %s\n", orDefault(cfg.Policy.Path, "(built-in defaults)"))
		fmt.Fprintf(out, "hearing expiry:    %s\n", time.Duration(policy.HearingAccess.Expiry))
		fmt.Fprintf(out, "feed api key:      %s\n", configured(cfg.Auth.FeedAPIKeyHash != ""))
		fmt.Fprintf(out, "jwt secret:        %s\n", configured(cfg.Auth.JWTSecret != ""))
		fmt.Fprintln(out, "configuration OK")
		return nil
	},
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "NOT CONFIGURED"
}
