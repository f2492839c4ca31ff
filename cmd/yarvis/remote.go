package main

import (
	"fmt"
	"os"
	"sort"

	"yarvis/internal/project"
	"yarvis/internal/view"

	"github.com/spf13/cobra"
)

func (c *cli) remoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Inspect and change the git remotes of a project directory",
		Long: `Work on the local git remotes of a project directory.

Examples:
  yarvis remote list minishell
  yarvis remote add minishell upstream https://github.com/school/minishell.git
  yarvis remote pull minishell --remote upstream --branch main
  yarvis remote remove minishell upstream`,
	}
	cmd.AddCommand(c.remoteListCmd(), c.remoteAddCmd(), c.remoteRemoveCmd(), c.remotePullCmd())
	return cmd
}

// openProject binds the named record to its directory, which must exist.
func (c *cli) openProject(cmd *cobra.Command, name string) (*project.Project, error) {
	rec, _, err := c.manager.Find(cmd.Context(), name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(rec.Directory); err != nil {
		return nil, fmt.Errorf("project directory unavailable: %w", err)
	}
	return project.Open(rec.Name, rec.Directory, c.git)
}

func (c *cli) remoteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <name>",
		Short: "List the remotes of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !p.Git.Enabled {
				fmt.Fprintln(out, "Not a git repository.")
				return nil
			}
			if len(p.Git.Remotes) == 0 {
				fmt.Fprintln(out, "No remotes.")
				return nil
			}

			names := make([]string, 0, len(p.Git.Remotes))
			for name := range p.Git.Remotes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "%s\t%s\n", name, p.Git.Remotes[name])
			}
			return nil
		},
	}
}

func (c *cli) remoteAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <remote> <url>",
		Short: "Add a remote, initializing git when needed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(cmd, args[0])
			if err != nil {
				return err
			}
			if !p.Git.Enabled {
				if err := p.GitEnable(); err != nil {
					return err
				}
			}
			if err := p.GitRemoteAdd(args[1], args[2]); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Remote %s added to %s", args[1], p.Name)))
			return nil
		},
	}
}

func (c *cli) remoteRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name> <remote>",
		Short: "Remove a remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(cmd, args[0])
			if err != nil {
				return err
			}
			if err := p.GitRemoteRemove(args[1]); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Remote %s removed from %s", args[1], p.Name)))
			return nil
		},
	}
}

func (c *cli) remotePullCmd() *cobra.Command {
	var remote, branch string
	cmd := &cobra.Command{
		Use:   "pull <name>",
		Short: "Fast-forward the project from a remote branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(cmd, args[0])
			if err != nil {
				return err
			}
			if branch == "" {
				branch = c.cfg.Git.DefaultBranch
			}
			if err := p.GitRemotePull(cmd.Context(), remote, branch); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Pulled %s/%s into %s", remote, branch, p.Name)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&remote, "remote", "r", "origin", "remote to pull from")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "branch to pull (default: git.default_branch)")
	return cmd
}
