package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"classroom/client"
	"classroom/internal/config"
	"classroom/internal/metrics"
	"classroom/pkg/constraints"
	"classroom/pkg/logger"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Config file (default: config.yaml in ., ./config or ~/.classroom)")
	apiURL     = flag.String("url", "", "API base URL, overrides api.base_url")
	backend    = flag.String("store", "", "Token store backend: file, redis, etcd or memory")
)

// terminal is the CLI's view layer. Being sent to the login view prints a
// notice once.
type terminal struct {
	mu      sync.Mutex
	out     io.Writer
	current string
}

func (t *terminal) CurrentView() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *terminal) Navigate(view string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = view
	if view == constraints.ViewLogin {
		fmt.Fprintln(t.out, "Your session has expired. Run `classctl login` to sign in again.")
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFrom(viper.New(), *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}

	logger.InitLogger(cfg.Log.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, flag.Args(), os.Stdout, os.Stdin))
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer, in io.Reader) int {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	var observer client.Observer
	if cfg.Metrics.Addr != "" {
		observer = metrics.NewClientObserver()
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, metrics.Handler()); err != nil {
				logger.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	term := &terminal{out: out}
	c := client.NewClient(cfg.API.BaseURL, store, client.Options{
		Timeout:   cfg.API.Timeout,
		Navigator: term,
		Observer:  observer,
	})
	a := &app{
		client: c,
		sess:   client.NewSession(c),
		term:   term,
		out:    out,
		in:     in,
	}
	return a.dispatch(ctx, args)
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "Usage: classctl [flags] <command> [command flags]\n\nCommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	flag.PrintDefaults()
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	var apiErr *client.APIError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, client.ErrNotAuthenticated),
		errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		return 3
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
		return 4
	}
	return 1
}
