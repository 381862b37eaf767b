package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"github.com/tliron/kutil/logging"

	"github.com/jward/fabls"
	"github.com/jward/fabls/internal/server"
	"github.com/jward/fabls/internal/watcher"
)

var (
	flagWatch   bool
	flagLogFile string
	flagVerbose int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the language server over stdio",
	Long:  "Speaks the Language Server Protocol on stdin/stdout. Workspace roots come from the client; with --watch, config and source changes on disk are re-indexed without editor traffic.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagWatch, "watch", false, "watch workspace roots for on-disk changes")
	serveCmd.Flags().StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")
	serveCmd.Flags().CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity")
}

func runServe(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol, so logs must go elsewhere.
	var logPath *string
	if flagLogFile != "" {
		logPath = &flagLogFile
	}
	logging.Configure(flagVerbose, logPath)

	index := fabls.New(fabls.WithFallbackDir(resolveFallbackDir()))
	srv := server.New(index)

	if flagWatch {
		w, err := watcher.New(index, 0)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		atexit.Register(func() { w.Close() })
		w.Start()
		srv.OnRoots = func(roots []string) {
			for _, root := range roots {
				if err := w.Watch(root); err != nil {
					logging.GetLogger("fabls").Warningf("watch %s: %s", root, err.Error())
				}
			}
		}
	}

	if err := srv.RunStdio(); err != nil {
		return err
	}
	// Runs registered cleanups (the watcher, when enabled) before exiting.
	atexit.Exit(0)
	return nil
}
