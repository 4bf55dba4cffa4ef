// Package runtimeconfig holds the versioned runtime configuration snapshot,
// its switch history and the postgres-backed store that swaps it atomically.
package runtimeconfig

import (
	"fmt"
	"sort"
	"time"
)

type Profile string

const (
	ProfileV1Primary  Profile = "V1_PRIMARY"
	ProfileV0Fallback Profile = "V0_FALLBACK"
)

func (p Profile) Valid() bool {
	return p == ProfileV1Primary || p == ProfileV0Fallback
}

type ModuleKey string

const (
	ModuleItemSelection        ModuleKey = "item_selection"
	ModuleDifficultyEstimation ModuleKey = "difficulty_estimation"
	ModuleRanking              ModuleKey = "ranking"
	ModuleRevisionScheduling   ModuleKey = "revision_scheduling"
	ModuleMasteryTracking      ModuleKey = "mastery_tracking"
)

// Modules lists every module that may carry an override, in display order.
var Modules = []ModuleKey{
	ModuleItemSelection,
	ModuleDifficultyEstimation,
	ModuleRanking,
	ModuleRevisionScheduling,
	ModuleMasteryTracking,
}

func (m ModuleKey) Valid() bool {
	for _, known := range Modules {
		if m == known {
			return true
		}
	}
	return false
}

type VersionKey string

const (
	VersionV0      VersionKey = "v0"
	VersionV1      VersionKey = "v1"
	VersionInherit VersionKey = "inherit"
)

func (v VersionKey) Valid() bool {
	return v == VersionV0 || v == VersionV1 || v == VersionInherit
}

// Overrides pins module versions. An absent module inherits from the profile.
type Overrides map[ModuleKey]VersionKey

// Clean returns a copy without inherit entries.
func (o Overrides) Clean() Overrides {
	cleaned := make(Overrides, len(o))
	for module, version := range o {
		if version == VersionInherit || version == "" {
			continue
		}
		cleaned[module] = version
	}
	return cleaned
}

func (o Overrides) Validate() error {
	for module, version := range o {
		if !module.Valid() {
			return fmt.Errorf("unknown module key %q", module)
		}
		if !version.Valid() {
			return fmt.Errorf("invalid version %q for module %s", version, module)
		}
	}
	return nil
}

// Equal compares two override sets after cleaning, so inherit and absent are the same.
func (o Overrides) Equal(other Overrides) bool {
	a, b := o.Clean(), other.Clean()
	if len(a) != len(b) {
		return false
	}
	for module, version := range a {
		if b[module] != version {
			return false
		}
	}
	return true
}

// Get reports the effective pin for module, VersionInherit when unset.
func (o Overrides) Get(module ModuleKey) VersionKey {
	if v, ok := o[module]; ok && v != "" {
		return v
	}
	return VersionInherit
}

// SortedModules returns the keys of o in a stable order.
func (o Overrides) SortedModules() []ModuleKey {
	keys := make([]ModuleKey, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type SafeMode struct {
	FreezeUpdates bool `json:"freeze_updates"`
	PreferCache   bool `json:"prefer_cache"`
}

type RuntimeConfig struct {
	ActiveProfile Profile   `json:"active_profile"`
	Overrides     Overrides `json:"overrides"`
	SafeMode      SafeMode  `json:"safe_mode"`
	ActiveSince   time.Time `json:"active_since"`
	// Version increases on every committed replace and guards against stale writes.
	Version int64 `json:"version"`
}

func (c *RuntimeConfig) Validate() error {
	if !c.ActiveProfile.Valid() {
		return fmt.Errorf("invalid active profile %q", c.ActiveProfile)
	}
	return c.Overrides.Validate()
}

func (c *RuntimeConfig) Clone() *RuntimeConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Overrides = make(Overrides, len(c.Overrides))
	for k, v := range c.Overrides {
		clone.Overrides[k] = v
	}
	return &clone
}

// Normalized returns a clone ready to persist: inherit entries dropped.
func (c *RuntimeConfig) Normalized() *RuntimeConfig {
	clone := c.Clone()
	clone.Overrides = c.Overrides.Clean()
	return clone
}

// SwitchEvent records one committed runtime-affecting change. Rows are never updated.
type SwitchEvent struct {
	ID             string        `json:"id"`
	Action         string        `json:"action"`
	PreviousConfig RuntimeConfig `json:"previous_config"`
	NewConfig      RuntimeConfig `json:"new_config"`
	Reason         string        `json:"reason"`
	CreatedBy      string        `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
}
