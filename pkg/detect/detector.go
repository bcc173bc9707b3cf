// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package detect

import (
	"strings"

	"github.com/go-logr/logr"

	"github.com/antimetal/hostwatch/pkg/catalog"
)

const usernameToken = "%USERNAME%"

var (
	registryRoots = []RegistryRoot{RootMachine, RootUser}
	registryViews = []RegistryView{View64, View32}
)

// Detector runs the per-app installation probes and maintains the
// Installed flag on catalog entries. The file-existence probe is
// authoritative; registry and uninstall-metadata hits are collected for
// diagnostics only, since registry state routinely outlives the files it
// describes. Probe errors are soft and count as not-found.
type Detector struct {
	logger   logr.Logger
	catalog  *catalog.Catalog
	registry ProbeSource
	paths    PathResolver
}

func NewDetector(logger logr.Logger, cat *catalog.Catalog, registry ProbeSource, paths PathResolver) *Detector {
	return &Detector{
		logger:   logger,
		catalog:  cat,
		registry: registry,
		paths:    paths,
	}
}

// Run probes every catalog app once and updates Installed flags. Running
// it twice with no filesystem change produces no state change and no
// duplicate transition logs.
func (d *Detector) Run() {
	for _, app := range d.catalog.Apps {
		d.detect(app)
	}
}

func (d *Detector) detect(app *catalog.App) {
	registrySignal := d.registryProbe(app)
	fileSignal := d.pathProbe(app)
	uninstallSignal := d.uninstallProbe(app)

	installed := fileSignal
	if installed != app.Installed {
		app.Installed = installed
		d.logger.Info("installation state changed",
			"app", app.Name, "installed", installed)
	}
	if !installed && (registrySignal || uninstallSignal) {
		// Registry traces without the binary usually mean a partial
		// uninstall or a stale key.
		d.logger.V(1).Info("app has registry traces but no files",
			"app", app.Name,
			"registry", registrySignal,
			"uninstall", uninstallSignal)
	}
}

func (d *Detector) registryProbe(app *catalog.App) bool {
	for _, key := range app.RegistryKeys {
		for _, root := range registryRoots {
			for _, view := range registryViews {
				found, err := d.registry.KeyExists(root, view, key)
				if err != nil {
					d.logger.V(2).Info("registry probe failed",
						"app", app.Name, "key", key,
						"root", root, "view", view, "error", err)
					continue
				}
				if found {
					return true
				}
			}
		}
	}
	return false
}

func (d *Detector) pathProbe(app *catalog.App) bool {
	username := d.paths.Username()
	for _, pattern := range app.PathPatterns {
		expanded := strings.ReplaceAll(pattern, usernameToken, username)
		if strings.ContainsAny(expanded, "*?[") {
			matches, err := d.paths.Glob(expanded)
			if err != nil {
				d.logger.V(2).Info("path glob failed",
					"app", app.Name, "pattern", expanded, "error", err)
				continue
			}
			for _, match := range matches {
				if d.paths.FileExists(match) {
					return true
				}
			}
			continue
		}
		if d.paths.FileExists(expanded) {
			return true
		}
	}
	return false
}

func (d *Detector) uninstallProbe(app *catalog.App) bool {
	name := strings.ToLower(app.Name)
	for _, view := range registryViews {
		entries, err := d.registry.UninstallEntries(view)
		if err != nil {
			d.logger.V(2).Info("uninstall probe failed",
				"app", app.Name, "view", view, "error", err)
			continue
		}
		for _, entry := range entries {
			if !strings.Contains(strings.ToLower(entry.DisplayName), name) {
				continue
			}
			// A declared install location must still exist on disk,
			// otherwise the entry is a leftover.
			if entry.InstallLocation != "" && !d.paths.DirExists(entry.InstallLocation) {
				continue
			}
			return true
		}
	}
	return false
}
