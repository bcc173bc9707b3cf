// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package detect decides whether cataloged applications are present on the
// host. Probing goes through the ProbeSource and PathResolver interfaces so
// the detector can run against in-memory fakes in tests.
package detect

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// RegistryRoot selects the machine-wide or current-user registry scope.
type RegistryRoot int

const (
	RootMachine RegistryRoot = iota
	RootUser
)

func (r RegistryRoot) String() string {
	if r == RootUser {
		return "user"
	}
	return "machine"
}

// RegistryView selects the 64-bit or 32-bit (WOW64) registry view.
type RegistryView int

const (
	View64 RegistryView = iota
	View32
)

func (v RegistryView) String() string {
	if v == View32 {
		return "32"
	}
	return "64"
}

// UninstallEntry is one subkey of the uninstall registry subtree.
type UninstallEntry struct {
	DisplayName     string
	InstallLocation string
}

// ProbeSource is the read-only registry surface the detector needs.
type ProbeSource interface {
	// KeyExists reports whether the key path exists under the given root
	// and view.
	KeyExists(root RegistryRoot, view RegistryView, path string) (bool, error)
	// UninstallEntries lists the uninstall subtree for the given view.
	UninstallEntries(view RegistryView) ([]UninstallEntry, error)
}

// PathResolver is the read-only filesystem surface the detector needs.
type PathResolver interface {
	// FileExists reports whether path names a regular file.
	FileExists(path string) bool
	// DirExists reports whether path names a directory.
	DirExists(path string) bool
	// Glob resolves a wildcard pattern to matching paths.
	Glob(pattern string) ([]string, error)
	// Username returns the name substituted for the %USERNAME% placeholder.
	Username() string
}

// OSPathResolver resolves path probes against the real filesystem.
type OSPathResolver struct{}

var _ PathResolver = OSPathResolver{}

func (OSPathResolver) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (OSPathResolver) DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (OSPathResolver) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

func (OSPathResolver) Username() string {
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	u, err := user.Current()
	if err != nil {
		return ""
	}
	// user.Current may return DOMAIN\name.
	if i := strings.LastIndexByte(u.Username, '\\'); i >= 0 {
		return u.Username[i+1:]
	}
	return u.Username
}
