package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <login>",
	Short: "Authenticate against the directory without touching the user store",
	Long: `Runs the directory part of a login and prints the verified identity.
The password is read from LDAPAUTH_PASSWORD, or from the first line of stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	ldapService, err := ldap.NewLDAPService(cfg.LDAP)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.App.LoginTimeout)
	defer cancel()

	identity, err := ldapService.Authenticate(ctx, args[0], password)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		DN string `json:"dn"`
		*ldap.Identity
	}{DN: identity.DN, Identity: identity})
}

func readPassword(cmd *cobra.Command) (string, error) {
	if password, ok := os.LookupEnv("LDAPAUTH_PASSWORD"); ok {
		return password, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
