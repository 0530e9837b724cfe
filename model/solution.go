// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package model

// SolutionItem is one discovered member of a solution graph: the item, its
// fetched JSON payload, and the sharing policy it must receive in the target
// portal.
type SolutionItem struct {
	Item    Item
	Data    map[string]any
	Sharing Sharing
}

// SolutionDefinition is the transitive closure of items reachable from one
// named solution entry point. Items preserves discovery preorder and never
// contains the same item id twice; Groups preserves first-encounter order.
type SolutionDefinition struct {
	Items  []SolutionItem
	Groups []string
}

// Contains reports whether an item with the given id was already discovered.
func (d *SolutionDefinition) Contains(id string) bool {
	for _, si := range d.Items {
		if si.Item.ID == id {
			return true
		}
	}
	return false
}

// Append adds a discovered item. It is the caller's responsibility to check
// Contains first; Append drops duplicates to keep the invariant regardless.
func (d *SolutionDefinition) Append(si SolutionItem) {
	if d.Contains(si.Item.ID) {
		return
	}
	d.Items = append(d.Items, si)
}

// AddGroup records a dependency group, keeping first-encounter order.
func (d *SolutionDefinition) AddGroup(id string) {
	for _, g := range d.Groups {
		if g == id {
			return
		}
	}
	d.Groups = append(d.Groups, id)
}

// ItemsOfType returns the discovered items of the given type, in discovery
// order.
func (d *SolutionDefinition) ItemsOfType(types ...string) []SolutionItem {
	var out []SolutionItem
	for _, si := range d.Items {
		for _, t := range types {
			if si.Item.Type == t {
				out = append(out, si)
				break
			}
		}
	}
	return out
}
