// Package main is the entry point of the webserv binary: it parses the
// configuration file named on the command line, starts the structured
// logger, and hands both to the reactor event loop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danisayumin/webserv/internal/reactor"
	"github.com/danisayumin/webserv/internal/webconfig"
	"github.com/danisayumin/webserv/internal/weblog"
)

var debug bool

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webserv <config-file>",
		Short: "An HTTP/1.1 origin server driven by a single epoll event loop",
		Long: `webserv serves static files, directory listings, file uploads, and
CGI/1.1 scripts from a single process and a single thread. Every
connection, request, and CGI child is multiplexed onto one epoll
instance; there is no per-connection goroutine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable verbose, human-readable logging")
	return cmd
}

func run(configPath string) error {
	log, err := weblog.New(debug)
	if err != nil {
		return fmt.Errorf("webserv: starting logger: %w", err)
	}
	defer log.Sync()

	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("webserv: opening config: %w", err)
	}
	defer f.Close()

	tree, err := webconfig.Parse(f)
	if err != nil {
		return fmt.Errorf("webserv: parsing config: %w", err)
	}

	r, err := reactor.New(log, tree)
	if err != nil {
		return fmt.Errorf("webserv: starting reactor: %w", err)
	}
	defer r.Close()

	log.Info("webserv starting", zap.String("config", configPath))
	if err := r.Run(); err != nil {
		return fmt.Errorf("webserv: event loop: %w", err)
	}
	return nil
}
