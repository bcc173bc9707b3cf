// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package catalog holds the static list of applications the agent can
// detect and install. The built-in catalog covers the stock app set; a
// YAML overlay file can add to or replace it.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App describes one catalog application. Everything except Installed is
// immutable for the process lifetime; Installed is written only by the
// installation detector.
type App struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	InstallerID string   `yaml:"installer_id"`
	// RegistryKeys are checked under both registry roots and both bit-width
	// views. Hits are informational only.
	RegistryKeys []string `yaml:"registry_keys"`
	// PathPatterns may contain a %USERNAME% placeholder and glob wildcards.
	// A matching regular file is the authoritative installed signal.
	PathPatterns []string `yaml:"path_patterns"`

	Installed bool `yaml:"-"`
}

// Catalog is an ordered list of apps plus the category ordering used for
// display grouping.
type Catalog struct {
	Apps       []*App
	Categories []string
}

// Lookup returns the app with the given name, or nil.
func (c *Catalog) Lookup(name string) *App {
	for _, app := range c.Apps {
		if app.Name == name {
			return app
		}
	}
	return nil
}

// InstallerIDs resolves a list of app names to installer identifiers,
// preserving order. Names that do not resolve are silently skipped.
func (c *Catalog) InstallerIDs(names []string) []string {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if app := c.Lookup(name); app != nil {
			ids = append(ids, app.InstallerID)
		}
	}
	return ids
}

// ByCategory returns the apps in the given category, catalog order.
func (c *Catalog) ByCategory(category string) []*App {
	var apps []*App
	for _, app := range c.Apps {
		if app.Category == category {
			apps = append(apps, app)
		}
	}
	return apps
}

type overlayFile struct {
	// Replace drops the built-in catalog entirely instead of appending.
	Replace bool   `yaml:"replace"`
	Apps    []*App `yaml:"apps"`
}

// Load returns the built-in catalog, optionally extended or replaced by
// the YAML overlay at path. An empty path returns the built-in catalog
// unchanged; a missing overlay file is not an error.
func Load(path string) (*Catalog, error) {
	c := builtin()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read catalog overlay %s: %w", path, err)
	}

	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse catalog overlay %s: %w", path, err)
	}

	if overlay.Replace {
		c.Apps = nil
	}
	for _, app := range overlay.Apps {
		if app.Name == "" || app.InstallerID == "" {
			return nil, fmt.Errorf("catalog overlay %s: app entries need name and installer_id", path)
		}
		// An overlay entry with a known name overrides the built-in one.
		if existing := c.Lookup(app.Name); existing != nil {
			*existing = *app
			continue
		}
		c.Apps = append(c.Apps, app)
		if !contains(c.Categories, app.Category) {
			c.Categories = append(c.Categories, app.Category)
		}
	}

	return c, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
