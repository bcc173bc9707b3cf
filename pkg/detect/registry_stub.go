// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !windows

package detect

// noRegistry stands in on hosts without a Windows registry. Every probe
// answers not-found, which leaves the file-existence probe as the only
// live signal.
type noRegistry struct{}

var _ ProbeSource = noRegistry{}

// NewOSProbeSource returns the registry source for this host.
func NewOSProbeSource() ProbeSource {
	return noRegistry{}
}

func (noRegistry) KeyExists(RegistryRoot, RegistryView, string) (bool, error) {
	return false, nil
}

func (noRegistry) UninstallEntries(RegistryView) ([]UninstallEntry, error) {
	return nil, nil
}
