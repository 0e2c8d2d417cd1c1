package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// errNoURL is returned by "url" when the object is absent or the provider
// cannot produce a URL for it.
var errNoURL = errors.New("no URL available")

func newPutCommand(c *cli) *cobra.Command {
	var (
		name        string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "put <resource-id> <file>",
		Short: "Upload a local file as the resource's stored file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, file := args[0], args[1]
			if name == "" {
				name = filepath.Base(file)
			}

			path, err := storage.DerivePath(id, name)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			rt, err := openRuntime(ctx, c.cfg, c.log, false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(ctx) }()

			if err := rt.backend.Apply(ctx, id, storage.Upload{Body: f, Filename: name, ContentType: contentType}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "filename to store under (default: base name of <file>)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (default: detected)")
	return cmd
}

func newURLCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "url <resource-id> <filename>",
		Short: "Print a download URL for a stored file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, c.cfg, c.log, false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(ctx) }()

			u, ok, err := rt.backend.ResolveURL(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return errNoURL
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newRemoveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <resource-id> <filename>",
		Short: "Delete a stored file; a missing file counts as deleted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, c.cfg, c.log, false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(ctx) }()

			return rt.backend.Apply(ctx, args[0], storage.Clear{PriorFilename: args[1]})
		},
	}
}
