// Package main is the entry point for the yarvis CLI.
//
// Every command loads the configuration, opens the record file and builds a
// project.Manager before running. Errors are printed once, on stderr, by
// main.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"yarvis/internal/boilerplate"
	"yarvis/internal/config"
	"yarvis/internal/credentials"
	"yarvis/internal/gitlocal"
	"yarvis/internal/hosting"
	"yarvis/internal/logging"
	"yarvis/internal/project"
	"yarvis/internal/store"
	"yarvis/internal/tui/prompt"
	"yarvis/internal/view"

	"github.com/spf13/cobra"
)

var version = "dev"

// hostingTimeout bounds every request to a hosting api.
const hostingTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, prompt.ErrCancelled) {
			fmt.Fprintln(os.Stderr, view.Error(describe(err)))
		}
		os.Exit(1)
	}
}

// cli carries the loaded dependencies shared by every subcommand.
type cli struct {
	configPath string
	hosts      project.HostFactory
	logger     *logging.AppLogger
	now        func() time.Time

	cfg     *config.Config
	manager *project.Manager
	git     gitlocal.Driver
	catalog *boilerplate.Catalog
	creds   *credentials.Manager
}

type cliOption func(*cli)

// withHostFactory replaces the hosting adapters, e.g. with fakes.
func withHostFactory(f project.HostFactory) cliOption {
	return func(c *cli) { c.hosts = f }
}

func withLogger(l *logging.AppLogger) cliOption {
	return func(c *cli) { c.logger = l }
}

func withClock(now func() time.Time) cliOption {
	return func(c *cli) { c.now = now }
}

func newRootCmd(opts ...cliOption) *cobra.Command {
	c := &cli{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	root := &cobra.Command{
		Use:   "yarvis",
		Short: "Manage project directories, their archives and their remote repositories",
		Long: `yarvis keeps track of your projects: where they live, which language they
use, when they are due and which remote repository backs them.

Projects can be created from boilerplates, archived, moved, and deleted
locally or together with their remote repository on GitHub or BLIH.

Examples:
  # Create a C project with a new GitHub repository
  yarvis new minishell --language c --repo new --api github --username me

  # List active projects, then archived ones
  yarvis list
  yarvis list --archived`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/yarvis/config.yaml)")

	root.AddCommand(
		c.newCmd(),
		c.listCmd(),
		c.showCmd(),
		c.archiveCmd(),
		c.unarchiveCmd(),
		c.moveCmd(),
		c.forgetCmd(),
		c.deleteCmd(),
		c.collabCmd(),
		c.remoteCmd(),
		c.boilerplatesCmd(),
		c.statsCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.editCmd(),
		c.mcpCmd(),
	)
	return root
}

// load reads the configuration and wires the manager.
func (c *cli) load(cmd *cobra.Command, args []string) error {
	if c.logger == nil {
		c.logger = logging.GetDefault()
	}

	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.cfg = cfg

	records, err := store.NewYAMLStore(cfg.DataPath())
	if err != nil {
		return err
	}

	c.creds = credentials.NewManager()
	c.git = gitlocal.New(
		gitlocal.WithLogger(c.logger),
		gitlocal.WithDefaultBranch(cfg.Git.DefaultBranch),
		gitlocal.WithAuthResolver(c.creds.Resolver(c.accounts()...)),
	)
	if c.hosts == nil {
		c.hosts = project.DefaultHostFactory(c.hostOptions()...)
	}

	c.manager, err = project.NewManager(records, project.Settings{
		ProjectsDir:   cfg.Projects.Directory,
		ArchivesDir:   cfg.Archives.Directory,
		Languages:     cfg.LanguageIDs(),
		DefaultBranch: cfg.Git.DefaultBranch,
	},
		project.WithHostFactory(c.hosts),
		project.WithGitDriver(c.git),
		project.WithLogger(c.logger),
	)
	if err != nil {
		return err
	}

	c.catalog = boilerplate.NewCatalog(cfg.Projects.Boilerplates, c.logger)
	c.logger.Debug("CLI ready", "command", cmd.Name(), "data", records.Path())
	return nil
}

// accounts lists the configured hosting accounts, used to find stored secrets.
// Each account is bound to the git hosts of its backend so a secret is never
// sent to an unrelated remote.
func (c *cli) accounts() []credentials.Account {
	apis := c.cfg.Git.APIs
	githubHosts := []string{"github.com"}
	if h := credentials.RemoteHost(apis.GitHub.BaseURL); h != "" && h != "api.github.com" {
		githubHosts = append(githubHosts, h)
	}
	return []credentials.Account{
		{API: string(hosting.GitHub), Username: apis.GitHub.Username, Hosts: githubHosts},
		{API: string(hosting.BLIH), Username: apis.BLIH.Username, Hosts: []string{strings.ToLower(strings.TrimSpace(apis.BLIH.Host))}},
	}
}

func (c *cli) hostOptions() []hosting.Option {
	apis := c.cfg.Git.APIs
	opts := []hosting.Option{
		hosting.WithLogger(c.logger),
		hosting.WithHTTPClient(&http.Client{Timeout: hostingTimeout}),
		hosting.WithGitHubAuth(apis.GitHub.Authentication),
	}
	if apis.GitHub.BaseURL != "" {
		opts = append(opts, hosting.WithGitHubBaseURL(apis.GitHub.BaseURL))
	}
	if apis.BLIH.BaseURL != "" {
		opts = append(opts, hosting.WithBLIHBaseURL(apis.BLIH.BaseURL))
	}
	if apis.BLIH.Host != "" {
		opts = append(opts, hosting.WithLegacyHost(apis.BLIH.Host))
	}
	return opts
}

func (c *cli) languages() view.Languages {
	return view.Languages(c.cfg.Languages)
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var verr *project.ValidationError
	switch {
	case errors.As(err, &verr) && verr.Field != "":
		return fmt.Sprintf("%s (%s)", err, verr.Field)
	case errors.Is(err, project.ErrOrphanedRemote):
		return err.Error() + "; the remote repository still exists and must be attached or deleted by hand"
	}
	return err.Error()
}
