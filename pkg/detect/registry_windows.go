// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build windows

package detect

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const uninstallSubtree = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

// WindowsRegistry probes the live Windows registry.
type WindowsRegistry struct{}

var _ ProbeSource = WindowsRegistry{}

// NewOSProbeSource returns the registry source for this host.
func NewOSProbeSource() ProbeSource {
	return WindowsRegistry{}
}

func rootKey(root RegistryRoot) registry.Key {
	if root == RootUser {
		return registry.CURRENT_USER
	}
	return registry.LOCAL_MACHINE
}

func viewAccess(view RegistryView) uint32 {
	if view == View32 {
		return registry.WOW64_32KEY
	}
	return registry.WOW64_64KEY
}

func (WindowsRegistry) KeyExists(root RegistryRoot, view RegistryView, path string) (bool, error) {
	k, err := registry.OpenKey(rootKey(root), path, registry.QUERY_VALUE|viewAccess(view))
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	k.Close()
	return true, nil
}

func (WindowsRegistry) UninstallEntries(view RegistryView) ([]UninstallEntry, error) {
	access := registry.READ | viewAccess(view)
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, uninstallSubtree, access)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open uninstall subtree: %w", err)
	}
	defer k.Close()

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to list uninstall entries: %w", err)
	}

	entries := make([]UninstallEntry, 0, len(names))
	for _, name := range names {
		sub, err := registry.OpenKey(registry.LOCAL_MACHINE, uninstallSubtree+`\`+name, access)
		if err != nil {
			continue
		}
		display, _, err := sub.GetStringValue("DisplayName")
		if err != nil {
			sub.Close()
			continue
		}
		location, _, _ := sub.GetStringValue("InstallLocation")
		sub.Close()
		entries = append(entries, UninstallEntry{
			DisplayName:     display,
			InstallLocation: location,
		})
	}
	return entries, nil
}
