// Command ustar creates, extracts, and inspects USTar archives.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/meigma/ustar"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ustar:", err)
		os.Exit(1)
	}
}

// common flags shared by all subcommands.
type flags struct {
	file    string
	gzip    bool
	zstd    bool
	verbose bool
	showSum bool
	withOwn bool
}

func (f *flags) compression() ustar.Compression {
	switch {
	case f.zstd:
		return ustar.CompressionZstd
	case f.gzip:
		return ustar.CompressionGzip
	default:
		return ustar.CompressionNone
	}
}

func (f *flags) logger() *slog.Logger {
	if !f.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ustar",
		Short:         "create, extract, and inspect USTar archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCreateCmd(), newExtractCmd(), newListCmd(), newTreeCmd())
	return root
}

func addCommonFlags(cmd *cobra.Command, f *flags) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "archive file (default stdin/stdout)")
	cmd.Flags().BoolVarP(&f.gzip, "gzip", "z", false, "gzip the archive stream")
	cmd.Flags().BoolVar(&f.zstd, "zstd", false, "zstd the archive stream")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log per-entry progress to stderr")
}

func newCreateCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "create DIR",
		Short: "pack a directory into an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := io.Writer(os.Stdout)
			if f.file != "" {
				w, err := os.Create(f.file)
				if err != nil {
					return err
				}
				defer w.Close()
				out = w
			}

			opts := []ustar.PackOption{
				ustar.PackWithCompression(f.compression()),
				ustar.PackWithLogger(f.logger()),
			}
			var dgst digest.Digester
			if f.showSum {
				dgst = digest.Canonical.Digester()
				opts = append(opts, ustar.PackWithDigester(dgst))
			}

			n, err := ustar.PackTo(cmd.Context(), args[0], out, opts...)
			if err != nil {
				return err
			}
			if f.showSum {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d bytes\n", dgst.Digest(), n)
			}
			return nil
		},
	}
	addCommonFlags(cmd, &f)
	cmd.Flags().BoolVar(&f.showSum, "digest", false, "print the content digest of the produced stream")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "extract DIR",
		Short: "unpack an archive into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := io.Reader(os.Stdin)
			if f.file != "" {
				r, err := os.Open(f.file)
				if err != nil {
					return err
				}
				defer r.Close()
				in = r
			}

			opts := []ustar.ExtractOption{
				ustar.ExtractWithCompression(f.compression()),
				ustar.ExtractWithLogger(f.logger()),
			}
			if f.withOwn {
				opts = append(opts, ustar.ExtractWithOwnership())
			}
			return ustar.Extract(cmd.Context(), in, args[0], opts...)
		},
	}
	addCommonFlags(cmd, &f)
	cmd.Flags().BoolVar(&f.withOwn, "owner", false, "restore uid/gid from entry metadata")
	return cmd
}

func newListCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list archive entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadArchive(cmd, &f)
			if err != nil {
				return err
			}
			for e := range a.Entries() {
				name := e.Path
				switch e.Kind {
				case ustar.KindDir:
					name += "/"
				case ustar.KindSymlink:
					name += " -> " + e.Linkname
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %8d %s %s\n",
					e.Mode.String(), e.Size, e.ModTime.Format("2006-01-02 15:04"), name)
			}
			return nil
		},
	}
	addCommonFlags(cmd, &f)
	return cmd
}

func newTreeCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "print the archive as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadArchive(cmd, &f)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), a.Tree(), 0)
			return nil
		},
	}
	addCommonFlags(cmd, &f)
	return cmd
}

func loadArchive(cmd *cobra.Command, f *flags) (*ustar.Archive, error) {
	in := io.Reader(os.Stdin)
	if f.file != "" {
		r, err := os.Open(f.file)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		in = r
	}
	return ustar.Load(cmd.Context(), in,
		ustar.LoadWithCompression(f.compression()),
		ustar.LoadWithLogger(f.logger()),
	)
}

func printTree(w io.Writer, node *ustar.TreeNode, depth int) {
	if depth > 0 {
		name := node.Entry.Name()
		if node.IsDir() {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth-1), name)
	}
	for _, child := range node.Children {
		printTree(w, child, depth+1)
	}
}
