// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import "strings"

// Architecture names the completion network a record trains.
type Architecture string

const (
	ArchPCN          Architecture = "PCN"
	ArchSnowFlakeNet Architecture = "SnowFlakeNet"
	ArchPMPNet       Architecture = "PMPNet"
	ArchUnknown      Architecture = "unknown"
)

// Longest marker first so "SnowflakeNet" is never read as a shorter name.
var archMarkers = []struct {
	marker string
	arch   Architecture
}{
	{"snowflakenet", ArchSnowFlakeNet},
	{"snowflake", ArchSnowFlakeNet},
	{"pmpnet", ArchPMPNet},
	{"pcn", ArchPCN},
}

// DetectArchitecture derives the architecture from an experiment TAG.
func DetectArchitecture(tag string) Architecture {
	lower := strings.ToLower(tag)
	for _, m := range archMarkers {
		if strings.Contains(lower, m.marker) {
			return m.arch
		}
	}
	return ArchUnknown
}

// Architecture returns the architecture named by the record's TAG.
func (s Spec) Architecture() Architecture {
	return DetectArchitecture(s.Tag)
}
