// Package plugins manages the user's installed plugins. The plugin root is a
// private package.json in the data directory whose "kb" section records the
// installed plugins; the packages themselves live in its node_modules and are
// installed, removed and updated through a pm.PackageManager.
package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kb-labs/plugins/internal/collections"
	"github.com/kb-labs/plugins/internal/logger"
	"github.com/kb-labs/plugins/internal/manifest"
	"github.com/kb-labs/plugins/internal/pm"
	"github.com/kb-labs/plugins/internal/warnings"
)

// RootName is the package name of the plugin root.
const RootName = "kb-plugins-root"

// Plugin is an installed plugin as shown by List.
type Plugin struct {
	Name        string
	Version     string
	Description string
	Type        string
	Tag         string
}

// Result is returned after Install, Uninstall or Update.
type Result struct {
	// Plugins are the names affected by the operation.
	Plugins  []string
	Duration time.Duration
}

// Manager runs plugin operations in DataDir.
type Manager struct {
	PM       pm.PackageManager
	Log      *logger.Logger
	Warnings *warnings.Cache
	DataDir  string
	LogLevel pm.LogLevel
	Verbose  bool
	OnStep   func(step, total int, label string) // called at each named stage
	OnLine   func(line string)                   // called for each raw output line from pm
}

// Install installs the given package specs ("name", "name@tag" or
// "@scope/name@1.2.3") without devDependencies and records each one that
// declares plugin metadata. Packages that are not plugins are left out of the
// root and reported as warnings.
func (mgr *Manager) Install(ctx context.Context, specs []string) (*Result, error) {
	start := time.Now()
	specs = collections.Distinct(specs)
	if len(specs) == 0 {
		return nil, fmt.Errorf("install: no plugins given")
	}

	root, err := mgr.loadRoot()
	if err != nil {
		return nil, err
	}
	installed := root.PluginNames()
	for _, s := range specs {
		name, _ := ParseSpec(s)
		if slices.Contains(installed, name) {
			mgr.warn("%s is already installed, reinstalling", name)
		}
	}

	mgr.step(1, 2, fmt.Sprintf("Installing %d plugins via %s", len(specs), mgr.PM.Name()))
	err = mgr.runGroup(func(ch chan<- pm.Progress) error {
		_, err := mgr.PM.Install(ctx, specs, pm.InstallOptions{ExecOptions: mgr.execOptions(ch), Prod: true})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("install: %w", err)
	}

	mgr.step(2, 2, "Recording plugins")
	var (
		added  []string
		record []manifest.Plugin
	)
	for _, s := range specs {
		name, tag := ParseSpec(s)
		m, err := manifest.LoadDir(mgr.packageDir(name))
		if err != nil {
			mgr.warn("%s: %v", name, err)
			continue
		}
		if !m.IsPlugin() {
			mgr.warn("%s is not a kb plugin", name)
			continue
		}
		record = append(record, manifest.Plugin{Name: name, Type: "user", Tag: tag})
		added = append(added, name)
	}
	// The package manager has rewritten the root by now, so only the kb
	// section of the file on disk is touched.
	err = manifest.UpdatePlugins(mgr.DataDir, func(cfg *manifest.PluginConfig) {
		for _, p := range record {
			addPlugin(cfg, p)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("plugin root: %w", err)
	}
	return &Result{Plugins: added, Duration: time.Since(start)}, nil
}

// Uninstall removes installed plugins. Names that are not installed are
// reported as warnings and skipped.
func (mgr *Manager) Uninstall(ctx context.Context, names []string) (*Result, error) {
	start := time.Now()
	root, err := mgr.loadRoot()
	if err != nil {
		return nil, err
	}
	installed := root.PluginNames()

	var remove []string
	for _, n := range collections.Distinct(names) {
		if !slices.Contains(installed, n) {
			mgr.warn("%s is not installed", n)
			continue
		}
		remove = append(remove, n)
	}
	if len(remove) == 0 {
		return &Result{Duration: time.Since(start)}, nil
	}

	mgr.step(1, 2, fmt.Sprintf("Removing %d plugins via %s", len(remove), mgr.PM.Name()))
	err = mgr.runGroup(func(ch chan<- pm.Progress) error {
		_, err := mgr.PM.Uninstall(ctx, remove, mgr.execOptions(ch))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("uninstall: %w", err)
	}

	mgr.step(2, 2, "Recording plugins")
	err = manifest.UpdatePlugins(mgr.DataDir, func(cfg *manifest.PluginConfig) {
		cfg.Plugins = slices.DeleteFunc(cfg.Plugins, func(p manifest.Plugin) bool {
			return slices.Contains(remove, p.Name)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("plugin root: %w", err)
	}
	return &Result{Plugins: remove, Duration: time.Since(start)}, nil
}

// Update updates the named plugins, or every installed plugin when names is
// empty.
func (mgr *Manager) Update(ctx context.Context, names []string) (*Result, error) {
	start := time.Now()
	root, err := mgr.loadRoot()
	if err != nil {
		return nil, err
	}
	installed := root.PluginNames()

	targets := installed
	if len(names) > 0 {
		targets = nil
		for _, n := range collections.Distinct(names) {
			if !slices.Contains(installed, n) {
				mgr.warn("%s is not installed", n)
				continue
			}
			targets = append(targets, n)
		}
	}
	if len(targets) == 0 {
		mgr.warn("no plugins to update")
		return &Result{Duration: time.Since(start)}, nil
	}

	mgr.step(1, 1, fmt.Sprintf("Updating %d plugins via %s", len(targets), mgr.PM.Name()))
	err = mgr.runGroup(func(ch chan<- pm.Progress) error {
		_, err := mgr.PM.Update(ctx, targets, mgr.execOptions(ch))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	return &Result{Plugins: targets, Duration: time.Since(start)}, nil
}

// List returns the installed plugins ordered by name, then version. Version
// and description come from each plugin's own package.json when present.
func (mgr *Manager) List() ([]Plugin, error) {
	root, err := mgr.loadRoot()
	if err != nil {
		return nil, err
	}
	entries := collections.DistinctBy(root.KB.Plugins, func(a, b manifest.Plugin) bool {
		return a.Name == b.Name
	})
	out := make([]Plugin, 0, len(entries))
	for _, e := range entries {
		p := Plugin{Name: e.Name, Type: e.Type, Tag: e.Tag}
		if m, err := manifest.LoadDir(mgr.packageDir(e.Name)); err == nil {
			p.Version = m.Version
			p.Description = m.Description
		} else {
			mgr.Log.Debugf("plugin %s: %v", e.Name, err)
		}
		out = append(out, p)
	}
	return collections.OrderBy(out, func(p Plugin) any {
		return []any{p.Name, p.Version}
	}), nil
}

// ParseSpec splits a package spec into name and tag. The tag is empty when
// it carries no version or dist-tag.
func ParseSpec(spec string) (name, tag string) {
	at := strings.LastIndex(spec, "@")
	if at <= 0 {
		return spec, ""
	}
	return spec[:at], spec[at+1:]
}

// ── helpers ──────────────────────────────────────────────────────────────────

// loadRoot returns the plugin root, creating it on first use.
func (mgr *Manager) loadRoot() (*manifest.Manifest, error) {
	if err := manifest.Ensure(mgr.DataDir, RootName); err != nil {
		return nil, fmt.Errorf("plugin root: %w", err)
	}
	root, err := manifest.LoadDir(mgr.DataDir)
	if err != nil {
		return nil, fmt.Errorf("plugin root: %w", err)
	}
	if root.KB == nil {
		root.KB = &manifest.PluginConfig{Schema: 1}
	}
	return root, nil
}

func (mgr *Manager) packageDir(name string) string {
	return filepath.Join(mgr.DataDir, "node_modules", filepath.FromSlash(name))
}

func (mgr *Manager) execOptions(ch chan<- pm.Progress) pm.ExecOptions {
	return pm.ExecOptions{
		Progress: ch,
		Cwd:      mgr.DataDir,
		LogLevel: mgr.LogLevel,
		Verbose:  mgr.Verbose,
	}
}

func (mgr *Manager) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	mgr.Log.Debugf("warning: %s", msg)
	if mgr.Warnings != nil {
		mgr.Warnings.Add(msg)
	}
}

func (mgr *Manager) step(n, total int, label string) {
	mgr.Log.Infof("[%d/%d] %s", n, total, label)
	if mgr.OnStep != nil {
		mgr.OnStep(n, total, label)
	}
}

// runGroup runs op with a progress channel, draining lines to the log and
// forwarding each to OnLine if set. It waits for the drain goroutine to
// finish before returning so no output is lost even when the channel is
// buffered.
func (mgr *Manager) runGroup(op func(ch chan<- pm.Progress) error) error {
	ch := make(chan pm.Progress, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range ch {
			if p.Line == "" {
				continue
			}
			mgr.Log.Debugf("  %s", p.Line)
			if mgr.OnLine != nil {
				mgr.OnLine(p.Line)
			}
		}
	}()
	err := op(ch)
	close(ch)
	<-done
	return err
}

// addPlugin records p in cfg, replacing the tag of an existing entry.
func addPlugin(cfg *manifest.PluginConfig, p manifest.Plugin) {
	for i := range cfg.Plugins {
		if cfg.Plugins[i].Name == p.Name {
			cfg.Plugins[i].Tag = p.Tag
			return
		}
	}
	cfg.Plugins = append(cfg.Plugins, p)
}
