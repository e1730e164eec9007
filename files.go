package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobfm/internal/view"
)

const defaultHistoryLimit = 20

// viewCommands returns the file manager verbs bound to run. The same
// commands serve one-shot invocations and the shell.
func viewCommands(run runner) []*cobra.Command {
	return []*cobra.Command{
		newFoldersCmd(run),
		newOpenCmd(run),
		newBackCmd(run),
		newLsCmd(run),
		newMkdirCmd(run),
		newPutCmd(run),
		newGetCmd(run),
		newRmCmd(run),
		newRmdirCmd(run),
		newTreeCmd(run),
		newHistoryCmd(run),
	}
}

// showView prints the current view as text or JSON.
func showView(w io.Writer, a *app) error {
	s := a.ctrl.Snapshot()

	if flagJSON {
		if s.Mode == view.ModeFolder {
			return printJSON(w, map[string]any{"folder": s.CurrentFolder, "files": nonNil(s.Files)})
		}

		return printJSON(w, map[string]any{"folders": nonNil(s.Folders)})
	}

	renderView(w, s, a.fancy)

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

func newFoldersCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				if err := a.ctrl.ListFolders(ctx); err != nil {
					return err
				}

				return showView(cmd.OutOrStdout(), a)
			})
		},
	}
}

func newOpenCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "open <folder>",
		Short: "Open a folder and list its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				if err := a.ctrl.Open(ctx, args[0]); err != nil {
					return err
				}

				return showView(cmd.OutOrStdout(), a)
			})
		},
	}
}

func newBackCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Return to the folder list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				if err := a.ctrl.Back(ctx); err != nil {
					return err
				}

				return showView(cmd.OutOrStdout(), a)
			})
		},
	}
}

func newLsCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder]",
		Short: "List files in a folder, or the current view when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				return runLs(ctx, cmd.OutOrStdout(), a, args)
			})
		},
	}
}

func runLs(ctx context.Context, w io.Writer, a *app, args []string) error {
	if len(args) == 1 {
		if err := a.ctrl.ListFiles(ctx, args[0]); err != nil {
			return err
		}

		s := a.ctrl.Snapshot()
		if flagJSON {
			return printJSON(w, map[string]any{"folder": s.CurrentFolder, "files": nonNil(s.Files)})
		}

		renderFiles(w, s, a.fancy)

		return nil
	}

	var err error
	if a.ctrl.Snapshot().Mode == view.ModeFolder {
		err = a.ctrl.ListFiles(ctx, "")
	} else {
		err = a.ctrl.ListFolders(ctx)
	}

	if err != nil {
		return err
	}

	return showView(w, a)
}

func newMkdirCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir [name]",
		Short: "Create a folder (defaults to the current folder name)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				return a.ctrl.CreateFolder(ctx, firstArg(args))
			})
		},
	}
}

func newPutCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put [local-file]",
		Short: "Upload a file into the current folder (or the selected file when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, _ := cmd.Flags().GetString("folder")

			return run(cmd, func(ctx context.Context, a *app) error {
				return runPut(ctx, a, args, folder)
			})
		},
	}

	cmd.Flags().String("folder", "", "target folder instead of the current one")

	return cmd
}

func runPut(ctx context.Context, a *app, args []string, folder string) error {
	if folder != "" {
		if len(args) == 0 {
			return errors.New("put --folder needs a local file")
		}

		return a.ctrl.UploadFile(ctx, folder, args[0])
	}

	if len(args) == 1 {
		if err := a.ctrl.SelectFile(args[0]); err != nil {
			return err
		}
	}

	return a.ctrl.Upload(ctx)
}

func newGetCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "get <file> [dest]",
		Short: "Download a file from the current folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				dest := ""
				if len(args) == 2 {
					dest = args[1]
				}

				path, err := a.ctrl.Download(ctx, args[0], dest)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), path)

				return nil
			})
		},
	}
}

func newRmCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file>",
		Short: "Delete a file from the current folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				return a.ctrl.DeleteFile(ctx, args[0])
			})
		},
	}
}

func newRmdirCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir [folder]",
		Short: "Delete a folder and everything in it (defaults to the current folder)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				return a.ctrl.DeleteFolder(ctx, firstArg(args))
			})
		},
	}
}

func newTreeCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the folder tree, expanding or collapsing folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expand, _ := cmd.Flags().GetStringSlice("expand")
			collapse, _ := cmd.Flags().GetStringSlice("collapse")
			all, _ := cmd.Flags().GetBool("all")
			none, _ := cmd.Flags().GetBool("none")

			return run(cmd, func(ctx context.Context, a *app) error {
				return runTree(ctx, cmd.OutOrStdout(), a, treeOptions{
					expand: expand, collapse: collapse, all: all, none: none,
				})
			})
		},
	}

	cmd.Flags().StringSlice("expand", nil, "folders to expand")
	cmd.Flags().StringSlice("collapse", nil, "folders to collapse")
	cmd.Flags().Bool("all", false, "expand every folder")
	cmd.Flags().Bool("none", false, "collapse every folder")
	cmd.MarkFlagsMutuallyExclusive("all", "none")

	return cmd
}

type treeOptions struct {
	expand   []string
	collapse []string
	all      bool
	none     bool
}

func runTree(ctx context.Context, w io.Writer, a *app, opts treeOptions) error {
	if len(a.ctrl.Snapshot().Folders) == 0 {
		if err := a.ctrl.ListFolders(ctx); err != nil {
			return err
		}
	}

	var errs []error

	switch {
	case opts.all:
		errs = append(errs, a.ctrl.ExpandAll(ctx))
	case opts.none:
		a.ctrl.CollapseAll()
	}

	for _, f := range opts.collapse {
		a.ctrl.Collapse(f)
	}

	for _, f := range opts.expand {
		errs = append(errs, a.ctrl.Expand(ctx, f))
	}

	s := a.ctrl.Snapshot()
	if flagJSON {
		if err := printJSON(w, s.Tree); err != nil {
			return err
		}
	} else {
		renderTree(w, s, a.fancy)
	}

	return errors.Join(errs...)
}

func newHistoryCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			return run(cmd, func(ctx context.Context, a *app) error {
				rows, err := a.store.Recent(ctx, limit)
				if err != nil {
					return err
				}

				if flagJSON {
					return printJSON(cmd.OutOrStdout(), rows)
				}

				renderHistory(cmd.OutOrStdout(), rows)

				return nil
			})
		},
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "number of entries")

	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
