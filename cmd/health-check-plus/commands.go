package main

import (
  "context"
  "errors"
  "fmt"
  "log/slog"
  "net/http"
  "os"
  "os/signal"
  "syscall"
  "time"

  "github.com/spf13/cobra"
  "github.com/spf13/pflag"
  "github.com/spf13/viper"

  "github.com/ajay-dhawan/health-check-plus/internal/app"
  "github.com/ajay-dhawan/health-check-plus/internal/util"
  "github.com/ajay-dhawan/health-check-plus/internal/versioninfo"
)

func newRootCmd() *cobra.Command {
  v := app.NewViper()

  root := &cobra.Command{
    Use:           "health-check-plus",
    Short:         "Report the application version and latest commit hash",
    SilenceUsage:  true,
    SilenceErrors: true,
  }
  pf := root.PersistentFlags()
  pf.String("metadata", "", "metadata file holding the version (env METADATA_PATH, default ./package.json)")
  pf.String("repo-dir", "", "repository to ask for the latest commit (env REPO_DIR)")
  pf.String("revision-source", "", "git, buildinfo or auto (env REVISION_SOURCE)")
  pf.Duration("lookup-timeout", 0, "bound on the revision lookup, 0 waits forever (env LOOKUP_TIMEOUT)")
  bindFlags(v, pf, map[string]string{
    "metadata_path":   "metadata",
    "repo_dir":        "repo-dir",
    "revision_source": "revision-source",
    "lookup_timeout":  "lookup-timeout",
  })

  root.AddCommand(newServeCmd(v), newShowCmd(v), newStampCmd(v))
  return root
}

// bindFlags lets a flag, when given, override the config key of the same meaning.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
  for key, flag := range keys {
    _ = v.BindPFlag(key, fs.Lookup(flag))
  }
}

func newServeCmd(v *viper.Viper) *cobra.Command {
  cmd := &cobra.Command{
    Use:   "serve",
    Short: "Serve the health-check endpoints over HTTP",
    RunE: func(cmd *cobra.Command, args []string) error {
      cfg, err := app.LoadConfig(v)
      if err != nil { return err }
      return serve(cmd.Context(), cfg)
    },
  }
  f := cmd.Flags()
  f.String("port", "", "listen port (env PORT, default 8080)")
  f.Bool("reconcile", false, "write the resolved commit hash back into the metadata file (env RECONCILE)")
  f.String("snapshot", "", "also write each resolution to this JSON file (env SNAPSHOT_PATH)")
  f.Bool("always-advance", false, "call the next handler after answering a health check (env ALWAYS_ADVANCE)")
  bindFlags(v, f, map[string]string{
    "port":           "port",
    "reconcile":      "reconcile",
    "snapshot_path":  "snapshot",
    "always_advance": "always-advance",
  })
  return cmd
}

func serve(ctx context.Context, cfg app.Config) error {
  if ctx == nil { ctx = context.Background() }
  ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
  defer stop()

  a, err := app.New(ctx, cfg, app.NewLogger())
  if err != nil { return fmt.Errorf("init: %w", err) }
  defer a.Close()

  srv := &http.Server{
    Addr:              ":" + cfg.Port,
    Handler:           a.Router(),
    ReadHeaderTimeout: 5 * time.Second,
  }

  errc := make(chan error, 1)
  go func() {
    slog.Info("health-check-plus listening", "addr", srv.Addr)
    errc <- srv.ListenAndServe()
  }()

  select {
  case err := <-errc:
    if err != nil && !errors.Is(err, http.ErrServerClosed) { return fmt.Errorf("http: %w", err) }
    return nil
  case <-ctx.Done():
  }

  shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
  defer cancel()
  return srv.Shutdown(shutdownCtx)
}

func cliLogger(cmd *cobra.Command) *slog.Logger {
  return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func printInfo(cmd *cobra.Command, info versioninfo.VersionInfo) error {
  out, err := util.PrettyJSON(info)
  if err != nil { return err }
  _, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
  return err
}

func newShowCmd(v *viper.Viper) *cobra.Command {
  var version, commit string
  cmd := &cobra.Command{
    Use:   "show",
    Short: "Resolve and print the version info",
    Args:  cobra.NoArgs,
    RunE: func(cmd *cobra.Command, args []string) error {
      cfg, err := app.LoadConfig(v)
      if err != nil { return err }
      var pre *versioninfo.VersionInfo
      if version != "" || commit != "" {
        p := versioninfo.New(version, commit)
        pre = &p
      }
      info, err := app.NewResolver(cfg, cliLogger(cmd), nil).Resolve(cmd.Context(), "", pre)
      if perr := printInfo(cmd, info); perr != nil { return perr }
      return err
    },
  }
  cmd.Flags().StringVar(&version, "version", "", "known version; used as is together with --commit")
  cmd.Flags().StringVar(&commit, "commit", "", "known commit hash; used as is together with --version")
  return cmd
}

func newStampCmd(v *viper.Viper) *cobra.Command {
  return &cobra.Command{
    Use:   "stamp",
    Short: "Record the latest commit hash in the metadata file",
    Args:  cobra.NoArgs,
    RunE: func(cmd *cobra.Command, args []string) error {
      cfg, err := app.LoadConfig(v)
      if err != nil { return err }
      cfg.Reconcile = true
      info, err := app.NewResolver(cfg, cliLogger(cmd), nil).Resolve(cmd.Context(), "", nil)
      if perr := printInfo(cmd, info); perr != nil { return perr }
      return err
    },
  }
}
