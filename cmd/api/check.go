package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and probe every LDAP server",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ldapService, err := ldap.NewLDAPService(cfg.LDAP)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.App.LoginTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	failed := 0
	for _, status := range ldapService.Check(ctx) {
		if status.Err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %-40s %v\n", status.Address, status.Err)
			continue
		}
		fmt.Fprintf(out, "OK    %-40s %s\n", status.Address, status.Latency.Round(time.Millisecond))
	}

	if failed == len(ldapService.Endpoints()) {
		return fmt.Errorf("no LDAP server is reachable")
	}
	return nil
}
