package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"yarvis/internal/config"
	"yarvis/internal/credentials"
	"yarvis/internal/hosting"
	"yarvis/internal/project"
	"yarvis/internal/tui/prompt"
	"yarvis/internal/view"

	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login <api>",
		Short: "Store a hosting password or token in the OS keyring",
		Long: `Store the password or personal access token of a hosting account in the
OS keyring. Remote operations use it whenever a project record has a
username but no password. When no username is configured for the api yet,
the one given with --username is saved to the config file.

Examples:
  # Prompt for a GitHub token
  yarvis login github --username octocat

  # Read it from stdin
  echo "$GITHUB_TOKEN" | yarvis login github --username octocat --password-stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := c.account(args[0], username)
			if err != nil {
				return err
			}

			var secret string
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password from stdin: %w", err)
				}
				secret = strings.TrimRight(line, "\r\n")
			} else {
				secret, err = prompt.Password(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("%s password for %s", account.API, account.Username))
				if err != nil {
					return err
				}
			}

			if err := c.creds.Store(account, secret); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Stored credentials for %s on %s", account.Username, account.API)))
			return c.rememberUsername(cmd, hosting.Backend(account.API), account.Username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name (default: the configured username for the api)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the secret from stdin")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "logout <api>",
		Short: "Remove a stored hosting password or token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := c.account(args[0], username)
			if err != nil {
				return err
			}
			if err := c.creds.Delete(account); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Removed credentials for %s on %s", account.Username, account.API)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name (default: the configured username for the api)")
	return cmd
}

// account resolves api and username, defaulting the username from config.
func (c *cli) account(api, username string) (credentials.Account, error) {
	backend, err := hosting.ParseBackend(api)
	if err != nil {
		return credentials.Account{}, err
	}
	if username == "" {
		username = c.configuredUsername(backend)
	}
	if username == "" {
		return credentials.Account{}, fmt.Errorf("no username given for %s: use --username", backend)
	}
	return credentials.Account{API: string(backend), Username: username}, nil
}

func (c *cli) configuredUsername(b hosting.Backend) string {
	switch b {
	case hosting.GitHub:
		return c.cfg.Git.APIs.GitHub.Username
	case hosting.BLIH:
		return c.cfg.Git.APIs.BLIH.Username
	}
	return ""
}

// rememberUsername saves username as the account of backend in the config
// file when none is configured.
func (c *cli) rememberUsername(cmd *cobra.Command, backend hosting.Backend, username string) error {
	if c.configuredUsername(backend) != "" {
		return nil
	}
	switch backend {
	case hosting.GitHub:
		c.cfg.Git.APIs.GitHub.Username = username
	case hosting.BLIH:
		c.cfg.Git.APIs.BLIH.Username = username
	}

	path := c.configPath
	var err error
	if path == "" {
		path = config.ConfigPath()
		err = c.cfg.Save()
	} else {
		err = c.cfg.SaveTo(path)
	}
	if err != nil {
		return fmt.Errorf("credentials stored but the username was not saved: %w", err)
	}
	cmd.Println(view.Success(fmt.Sprintf("Saved %s as the %s username in %s", username, backend, path)))
	return nil
}

// fillCredentials completes g before a remote operation: the username falls
// back to the configured one, the password to the keyring and then to an
// interactive prompt.
func (c *cli) fillCredentials(cmd *cobra.Command, g *project.GitInfo) error {
	backend, err := hosting.ParseBackend(g.API)
	if err != nil {
		// Left for the manager to report.
		return nil
	}
	if g.Username == "" {
		g.Username = c.configuredUsername(backend)
	}
	if backend == hosting.BLIH && g.LegacyUsername == "" {
		g.LegacyUsername = c.cfg.Git.APIs.BLIH.LegacyUsername
	}
	if g.Username == "" || g.Password != "" {
		return nil
	}

	account := credentials.Account{API: string(backend), Username: g.Username}
	secret, err := c.creds.Get(account)
	if err == nil {
		g.Password = secret
		return nil
	}
	if !errors.Is(err, credentials.ErrNotFound) {
		c.logger.Warn("Keyring lookup failed", "account", account.Username, "error", err)
	}

	secret, err = prompt.Password(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("%s password for %s", backend, g.Username))
	if err != nil {
		return err
	}
	g.Password = secret
	return nil
}
