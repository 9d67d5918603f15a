package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kb-labs/plugins/internal/config"
	"github.com/kb-labs/plugins/internal/logger"
	"github.com/kb-labs/plugins/internal/plugins"
	"github.com/kb-labs/plugins/internal/pm"
)

// session is what every plugin command needs: resolved configuration, the
// run log and a plugin manager bound to the selected package manager.
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	mgr    *plugins.Manager
	stderr io.Writer
}

func newSession(cmd *cobra.Command) (*session, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	level, err := pm.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.Verbose {
		log.SetLevel(string(pm.LogLevelVerbose))
	}

	name := packageManagerName(cfg, cmd.Flags().Changed("package-manager"))
	client, err := pm.New(name, pm.Options{
		Root:             cfg.Root,
		Registry:         cfg.NpmRegistry,
		CacheDir:         cfg.CacheDir,
		NetworkMutexPort: cfg.NetworkMutexPort,
		LogLevel:         level,
		UseNetworkMutex:  cfg.UseNetworkMutex,
	}, log)
	if err != nil {
		log.Close()
		return nil, err
	}
	log.Debugf("using %s in %s, log %s", client.Name(), cfg.DataDir, log.LogPath())

	return &session{
		cfg: cfg,
		log: log,
		mgr: &plugins.Manager{
			PM:       client,
			Log:      log,
			Warnings: warningsFrom(cmd.Context()),
			DataDir:  cfg.DataDir,
			LogLevel: level,
			Verbose:  cfg.Verbose,
		},
		stderr: os.Stderr,
	}, nil
}

func (s *session) close() {
	if err := s.log.Close(); err != nil {
		fmt.Fprintf(s.stderr, "close log: %v\n", err)
	}
}

// packageManagerName honours an explicit --package-manager or
// KB_PLUGINS_PACKAGE_MANAGER; otherwise a lockfile already in the data
// directory decides, so the root keeps being managed by the same tool.
func packageManagerName(cfg *config.Config, flagSet bool) string {
	if flagSet || config.ScopedEnvVar("package_manager") != "" {
		return cfg.PackageManager
	}
	return pm.Detect(cfg.DataDir, cfg.PackageManager)
}
