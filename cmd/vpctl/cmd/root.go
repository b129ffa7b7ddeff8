package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"github.com/ambiyansyah-risyal/visualping"
	"github.com/ambiyansyah-risyal/visualping/internal/config"
	"github.com/ambiyansyah-risyal/visualping/store/boltstore"
	"github.com/ambiyansyah-risyal/visualping/store/redisstore"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	configPath string
	debug      bool
	out        io.Writer

	client  *visualping.Client
	store   sessionStore
	closers []func() error
}

// sessionStore is a SessionStore that can also forget the saved session.
type sessionStore interface {
	visualping.SessionStore
	Delete(ctx context.Context) error
}

// NewRootCmd builds the vpctl command tree writing results to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "vpctl",
		Short: "vpctl manages Visualping monitoring jobs",
		Long: `A command line client for the Visualping API.
Credentials are read from ~/.config/vpctl/config.toml or the VISUALPING_EMAIL
and VISUALPING_PASSWORD environment variables. Tokens are cached between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/vpctl/config.toml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log requests, retries and logins to stderr")

	root.AddCommand(
		newWhoamiCmd(a),
		newTokenCmd(a),
		newJobsCmd(a),
		newLogoutCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs vpctl and exits non-zero on failure.
func Execute() {
	root := NewRootCmd(os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// open loads configuration and builds the session store and client.
func (a *app) open() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := a.openStore(cfg)
	if err != nil {
		return err
	}
	a.store = store

	opts := []visualping.Option{
		visualping.WithTimeout(cfg.Timeout),
		visualping.WithMaxRetries(cfg.MaxRetries),
		visualping.WithSessionStore(store),
		visualping.WithUserAgent("vpctl/" + visualping.Version),
	}
	if cfg.TokenURL != "" {
		opts = append(opts, visualping.WithTokenURL(cfg.TokenURL))
	}
	if cfg.AccountBaseURL != "" {
		opts = append(opts, visualping.WithAccountBaseURL(cfg.AccountBaseURL))
	}
	if cfg.JobsBaseURL != "" {
		opts = append(opts, visualping.WithJobsBaseURL(cfg.JobsBaseURL))
	}
	if a.debug {
		opts = append(opts, visualping.WithSimpleLogger())
	}

	client := visualping.New(cfg.Email, cfg.Password, opts...)
	if err := client.ValidationError(); err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *app) openStore(cfg config.Config) (sessionStore, error) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		var opts []redisstore.Option
		if cfg.RedisPrefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.RedisPrefix))
		}
		return redisstore.New(rdb, cfg.Email, opts...), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SessionFile), 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	store, err := boltstore.Open(cfg.SessionFile, cfg.Email, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withClient wraps a RunE so the client is opened first and always closed.
func (a *app) withClient(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return err
		}
		defer a.close()
		return run(cmd, args)
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
