package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"yarvis/internal/boilerplate"
	"yarvis/internal/core"
	"yarvis/internal/project"
	"yarvis/internal/tui/prompt"
	"yarvis/internal/view"

	"github.com/spf13/cobra"
)

// deadlineLayouts are the accepted --deadline formats.
var deadlineLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseDeadline(s string) (*time.Time, error) {
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid deadline %q: use YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC 3339", s)
}

func (c *cli) newCmd() *cobra.Command {
	var (
		d        project.Draft
		deadline string
	)
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a project",
		Long: `Create a project directory, optionally seeded from a boilerplate, and
record it. With --repo new a repository is created on the hosting api and
attached as origin; with --repo use an existing remote is attached and
pulled.

Examples:
  # Local project in <projects directory>/minishell
  yarvis new minishell --language c

  # New BLIH repository
  yarvis new minishell --language c --repo new --api blih --username me@epitech.eu --legacy-username me

  # Clone-like adoption of an existing remote
  yarvis new dotfiles --language other --repo use --remote https://github.com/me/dotfiles.git`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Name = args[0]
			if d.Directory == "" {
				d.Directory = filepath.Join(c.cfg.Projects.Directory, d.Name)
			}
			if deadline != "" {
				t, err := parseDeadline(deadline)
				if err != nil {
					return err
				}
				d.Deadline = t
			}
			if d.Boilerplate != "" {
				path, err := c.boilerplatePath(d.Boilerplate)
				if err != nil {
					return err
				}
				d.Boilerplate = path
			}

			rec := project.NewRecord(d)
			if rec.Git.Repo == project.RepoNew {
				if err := c.fillCredentials(cmd, &rec.Git); err != nil {
					return err
				}
			}

			if err := c.manager.Create(cmd.Context(), &rec); err != nil {
				return err
			}

			cmd.Println(view.Success(fmt.Sprintf("Project %s created in %s", rec.Name, rec.Directory)))
			if rec.Git.Remote != "" {
				cmd.Printf("  remote: %s\n", rec.Git.Remote)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&d.Language, "language", "l", "", "language id from the configured languages table")
	f.StringVarP(&d.Directory, "dir", "d", "", "project directory (default <projects directory>/<name>)")
	f.StringVar(&d.Description, "description", "", "short description, also used for new repositories")
	f.StringVar(&deadline, "deadline", "", "due date, e.g. 2024-06-30")
	f.StringVar(&d.Repo, "repo", string(project.RepoNone), "repository mode: none, new or use")
	f.StringVar(&d.API, "api", "", "hosting api for --repo new: github or blih")
	f.StringVarP(&d.Username, "username", "u", "", "hosting account (default: the configured username)")
	f.StringVar(&d.LegacyUsername, "legacy-username", "", "BLIH login used in clone URLs")
	f.StringVar(&d.Remote, "remote", "", "existing remote URL for --repo use")
	f.StringVarP(&d.Boilerplate, "boilerplate", "b", "", "boilerplate name or directory to copy into the project")
	return cmd
}

// boilerplatePath resolves a catalog entry by name, or accepts an absolute directory.
func (c *cli) boilerplatePath(name string) (string, error) {
	bp, err := c.catalog.Find(name)
	if err == nil {
		return bp.Path, nil
	}
	if errors.Is(err, boilerplate.ErrNotFound) && filepath.IsAbs(name) {
		return name, nil
	}
	return "", err
}

func (c *cli) listCmd() *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long: `List active projects, or archived ones with --archived.

When archives.auto_archive is enabled, active projects whose deadline has
passed are archived first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := project.Projects
			if archived {
				collection = project.Archives
			} else if c.cfg.Archives.AutoArchive {
				c.archiveOverdue(cmd)
			}

			records, err := c.manager.List(cmd.Context(), collection)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.ProjectTable(records, c.languages(), c.now()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "list archived projects")
	return cmd
}

// archiveOverdue archives active projects past their deadline. Failures are
// reported and skipped.
func (c *cli) archiveOverdue(cmd *cobra.Command) {
	records, err := c.manager.List(cmd.Context(), project.Projects)
	if err != nil {
		c.logger.Warn("Auto-archive skipped", "error", err)
		return
	}
	now := c.now()
	for i := range records {
		rec := &records[i]
		if rec.Deadline == nil || !rec.Deadline.Before(now) {
			continue
		}
		if err := c.manager.Archive(cmd.Context(), rec); err != nil {
			cmd.PrintErrln(view.Warning(fmt.Sprintf("Could not archive %s: %v", rec.Name, err)))
			continue
		}
		cmd.Println(view.Success(fmt.Sprintf("Archived overdue project %s", rec.Name)))
	}
}

func (c *cli) showCmd() *cobra.Command {
	var (
		raw   bool
		width int
	)
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Describe a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, collection, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			md := view.ProjectMarkdown(rec, collection, c.languages(), c.now())
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), view.RenderMarkdown(md, width))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	cmd.Flags().IntVarP(&width, "width", "w", 80, "wrap width")
	return cmd
}

func (c *cli) archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <name>",
		Short: "Move a project into the archives directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.manager.Archive(cmd.Context(), &rec); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Project %s archived to %s", rec.Name, rec.Directory)))
			return nil
		},
	}
}

func (c *cli) unarchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unarchive <name>",
		Short: "Move an archived project back to where it came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.manager.Unarchive(cmd.Context(), &rec); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Project %s restored to %s", rec.Name, rec.Directory)))
			return nil
		},
	}
}

func (c *cli) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <name> <destination>",
		Short: "Move a project directory under another parent directory",
		Long: `Move the project directory to <destination>/<name>. The project stays in
its collection.

Examples:
  yarvis move minishell ~/school/2024`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.manager.Move(cmd.Context(), &rec, args[1]); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Project %s moved to %s", rec.Name, rec.Directory)))
			return nil
		},
	}
}

func (c *cli) forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <name>",
		Short: "Drop a project record, keeping its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.manager.Forget(cmd.Context(), &rec); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Project %s forgotten; %s was left in place", rec.Name, rec.Directory)))
			return nil
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	var remote, yes bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project directory and its record",
		Long: `Delete the project directory and forget the project. With --remote the
remote repository is deleted first.

Examples:
  yarvis delete minishell
  yarvis delete minishell --remote --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !yes {
				question := fmt.Sprintf("Delete %s and everything in it?", rec.Directory)
				if remote {
					question = fmt.Sprintf("Delete %s and its remote repository?", rec.Directory)
				}
				ok, err := prompt.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question, false)
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println("Nothing deleted.")
					return nil
				}
			}

			if !remote {
				if err := c.manager.DeleteLocal(cmd.Context(), &rec); err != nil {
					return err
				}
				cmd.Println(view.Success(fmt.Sprintf("Project %s deleted", rec.Name)))
				return nil
			}

			if err := c.fillCredentials(cmd, &rec.Git); err != nil {
				return err
			}
			if err := c.manager.DeleteGlobal(cmd.Context(), &rec); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("Project %s and its remote repository deleted", rec.Name)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "also delete the remote repository")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (c *cli) collabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collab <name> <user> <rights>",
		Short: "Grant a user access to the project's remote repository",
		Long: `Grant <user> access to the remote repository. <rights> holds any of the
flags a (admin), w (write) and r (read).

Examples:
  yarvis collab minishell ramassage-tek r`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.fillCredentials(cmd, &rec.Git); err != nil {
				return err
			}
			if err := c.manager.AddCollaborator(cmd.Context(), &rec, args[1], args[2]); err != nil {
				return err
			}
			cmd.Println(view.Success(fmt.Sprintf("%s can now access %s (%s)", args[1], rec.Name, args[2])))
			return nil
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count projects, archives and repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.manager.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.StatsTable(s))
			return nil
		},
	}
}

func (c *cli) boilerplatesCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "boilerplates",
		Short: "List the boilerplates available to new projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				bps []boilerplate.Boilerplate
				err error
			)
			if language != "" {
				bps, err = c.catalog.ForLanguage(language)
			} else {
				bps, err = c.catalog.List()
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.BoilerplateList(bps, 80))
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "only boilerplates for this language")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <name>",
		Short: "Open the project directory in $EDITOR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := c.manager.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return core.EditDirectory(cmd.Context(), rec.Directory, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}
