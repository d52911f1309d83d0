package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/ragstore/internal/cli"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/rag"
	"github.com/hyperjump/ragstore/internal/server"
	"github.com/hyperjump/ragstore/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultServerURL = "http://localhost:8080"

// withComponents loads config and components, runs fn, and releases everything.
func (a *app) withComponents(ctx context.Context, restore bool, fn func(*Components) error) error {
	cfg, _, logger, err := a.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	c, err := initializeComponents(ctx, cfg, logger, restore)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the directory watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedConfigPath, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			c, err := initializeComponents(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer c.Close()

			watchSvc := watcher.New(c.Ingester,
				watcher.WithRoots(cfg.Watch.Directories...),
				watcher.WithExtensions(cfg.Watch.Extensions),
				watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
				watcher.WithLogger(logger),
			)
			if err := watchSvc.Start(ctx); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer watchSvc.Stop()
			go watchSvc.SyncExistingFiles()

			srv := server.NewServer(c.Orchestrator, c.Ingester, cfg,
				server.WithLocker(c.Locker),
				server.WithWatch(watchSvc),
				server.WithConfigPath(resolvedConfigPath),
				server.WithLogger(logger),
			)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			var serveErr error
			select {
			case <-sigChan:
			case serveErr = <-errCh:
				logger.Error("Server failed", zap.Error(serveErr))
			}

			logger.Info("Shutting down...")
			watchSvc.Stop()
			cancel()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			_ = srv.Stop(stopCtx)
			if err := c.SaveSnapshot(); err != nil {
				logger.Warn("snapshot save failed", zap.String("path", cfg.Storage.SnapshotPath), zap.Error(err))
			}
			return serveErr
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		text      string
		source    string
		recursive bool
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "add [file-or-directory...]",
		Short: "Add files, directories, or raw text to the store",
		Example: `  ragstore add notes.md docs/
  ragstore add --text "The cat sat on the mat." --source cats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 0 {
				return errors.New("nothing to add: pass paths or --text")
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			if serverURL != "" {
				if len(args) > 0 {
					return errors.New("files are ingested locally; use `ragstore watch add` for a running server")
				}
				n, err := cli.NewClient(serverURL).AddText(ctx, text, source)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %d chunk(s)\n", n)
				return nil
			}
			return a.withComponents(ctx, true, func(c *Components) error {
				if text != "" {
					n, err := c.Ingester.IngestText(ctx, text, source)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Added %d chunk(s)\n", n)
				}
				var failed int
				for _, path := range args {
					if err := addPath(ctx, c, out, path, recursive); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
					}
				}
				if err := c.SaveSnapshot(); err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				if failed > 0 {
					return fmt.Errorf("%d path(s) failed", failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "raw text to add")
	cmd.Flags().StringVar(&source, "source", "", "source label for --text (default: untitled-<id>)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories")
	cmd.Flags().StringVar(&serverURL, "server", "", "send --text to a running server instead of the local store")
	return cmd
}

func addPath(ctx context.Context, c *Components, out io.Writer, path string, recursive bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		sum, err := c.Ingester.IngestDirectory(ctx, path, recursive)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d file(s), %d chunk(s), %d unchanged, %d failed\n",
			path, sum.Files, sum.Chunks, sum.Skipped, sum.Failed)
		return nil
	}
	res, err := c.Ingester.IngestFile(ctx, path)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintf(out, "%s: unchanged\n", res.Path)
		return nil
	}
	fmt.Fprintf(out, "%s: %d chunk(s)\n", res.Path, res.Chunks)
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		topK        int
		format      string
		withContext bool
		serverURL   string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the stored chunks closest to a query",
		Long:  "Query is all arguments joined by spaces. Multi-word queries work with or without quotes.",
		Example: `  ragstore search machine learning
  ragstore search --top-k 3 --format json "machine learning"
  ragstore search --context what did the cat sit on`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			query := &models.SearchQuery{Query: buildSearchQuery(args), TopK: topK}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if serverURL != "" {
				client := cli.NewClient(serverURL)
				if withContext {
					text, err := client.Context(ctx, query)
					if err != nil {
						return fmt.Errorf("search failed: %w", err)
					}
					fmt.Fprintln(out, text)
					return nil
				}
				resp, err := client.Search(ctx, query)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				return cli.WriteSearchResults(out, resp, outFormat)
			}

			return a.withComponents(ctx, true, func(c *Components) error {
				if err := query.Validate(c.Config.Search.DefaultTopK, c.Config.Search.MaxTopK); err != nil {
					return err
				}
				resp, err := c.Orchestrator.Search(ctx, query.Query, query.TopK)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				if withContext {
					fmt.Fprintln(out, rag.BuildContext(resp.Results))
					return nil
				}
				return cli.WriteSearchResults(out, resp, outFormat)
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (default from config)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().BoolVar(&withContext, "context", false, "print the RAG context block instead of results")
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server, e.g. "+defaultServerURL)
	return cmd
}

func newSourcesCmd(a *app) *cobra.Command {
	var (
		format    string
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the distinct source labels in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			if serverURL != "" {
				sources, err := cli.NewClient(serverURL).Sources(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteSources(cmd.OutOrStdout(), sources, outFormat)
			}
			return a.withComponents(cmd.Context(), true, func(c *Components) error {
				return cli.WriteSources(cmd.OutOrStdout(), c.Orchestrator.ContextSources(), outFormat)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server, e.g. "+defaultServerURL)
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored chunk and forget ingested files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				if err := cli.NewClient(serverURL).Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Store cleared")
				return nil
			}
			// The snapshot is not loaded, so clear works even when it no longer matches the config.
			return a.withComponents(cmd.Context(), false, func(c *Components) error {
				if err := c.Ingester.Clear(cmd.Context()); err != nil {
					return err
				}
				if err := c.SaveSnapshot(); err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Store cleared")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "clear a running server's store, e.g. "+defaultServerURL)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var (
		format    string
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store, provider, and catalog status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			if serverURL != "" {
				st, err := cli.NewClient(serverURL).Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("status failed: %w", err)
				}
				return cli.WriteStatus(cmd.OutOrStdout(), st, outFormat)
			}
			return a.withComponents(cmd.Context(), true, func(c *Components) error {
				st, err := c.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("status failed: %w", err)
				}
				return cli.WriteStatus(cmd.OutOrStdout(), st, outFormat)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server, e.g. "+defaultServerURL)
	return cmd
}

func newWatchCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage a running server's watched directories",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "server URL")

	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Watch a directory, ingesting its existing files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := cli.NewClient(serverURL).AddWatchDirectory(cmd.Context(), path); err != nil {
				return fmt.Errorf("add failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", path)
			return nil
		},
	}
	remove := &cobra.Command{
		Use:   "remove <path>",
		Short: "Stop watching a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := cli.NewClient(serverURL).RemoveWatchDirectory(cmd.Context(), path); err != nil {
				return fmt.Errorf("remove failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", path)
			return nil
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List watched directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := cli.NewClient(serverURL).WatchDirectories(cmd.Context())
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}
			for _, d := range dirs {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
	cmd.AddCommand(add, remove, list)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ragstore version %s\n", version)
		},
	}
}
