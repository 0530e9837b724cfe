// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package model

// The mapping tables are run-scoped lookups from source identifiers to the
// objects created (or found) for them in the target portal. Entries are added
// exactly once per source id, and only after the target object is confirmed
// to exist, since later swizzling depends on them.

// IDMapping maps a source id to a target id. Used for groups and web maps.
type IDMapping struct {
	ids map[string]string
}

func NewIDMapping() *IDMapping {
	return &IDMapping{ids: map[string]string{}}
}

// Add records a source to target pair. The first registration wins; repeated
// calls for the same source id are ignored.
func (m *IDMapping) Add(sourceID, targetID string) {
	if _, ok := m.ids[sourceID]; ok {
		return
	}
	m.ids[sourceID] = targetID
}

func (m *IDMapping) Lookup(sourceID string) (string, bool) {
	targetID, ok := m.ids[sourceID]
	return targetID, ok
}

func (m *IDMapping) Contains(sourceID string) bool {
	_, ok := m.ids[sourceID]
	return ok
}

func (m *IDMapping) Len() int {
	return len(m.ids)
}

// ServiceMapEntry pairs an original feature service (id and URL) with its
// clone.
type ServiceMapEntry struct {
	SourceID  string
	SourceURL string
	TargetID  string
	TargetURL string
}

// ServiceMapping is an insertion-ordered sequence of service pairs. Order
// matters: swizzling applies entries in registration order so that an earlier
// service's URL is fully substituted before a later pattern could touch it.
type ServiceMapping struct {
	entries []ServiceMapEntry
}

func NewServiceMapping() *ServiceMapping {
	return &ServiceMapping{}
}

func (m *ServiceMapping) Add(e ServiceMapEntry) {
	if m.Contains(e.SourceID) {
		return
	}
	m.entries = append(m.entries, e)
}

func (m *ServiceMapping) Contains(sourceID string) bool {
	for _, e := range m.entries {
		if e.SourceID == sourceID {
			return true
		}
	}
	return false
}

// Entries returns the registered pairs in insertion order. The returned slice
// is shared; callers must not mutate it.
func (m *ServiceMapping) Entries() []ServiceMapEntry {
	return m.entries
}

func (m *ServiceMapping) Len() int {
	return len(m.entries)
}
