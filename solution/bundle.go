// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package solution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gisops/solclone/model"
)

// Local bundle layout. A bundle is a directory tree transferable offline:
//
//	SolutionDefinitions.json
//	items/<id>/<data file>
//	items/<id>/esriinfo/iteminfo.json
//	items/<id>/esriinfo/sharing.json
//	items/<id>/esriinfo/thumbnail/<file>
//	items/<id>/esriinfo/featureserver.json   (feature services only)
//	groups/<id>/groupinfo.json
const (
	definitionsFileName = "SolutionDefinitions.json"
	itemsDirName        = "items"
	groupsDirName       = "groups"
	esriInfoDirName     = "esriinfo"
	itemInfoFileName    = "iteminfo.json"
	sharingFileName     = "sharing.json"
	featureServerName   = "featureserver.json"
	groupInfoFileName   = "groupinfo.json"
	thumbnailDirName    = "thumbnail"
)

var (
	ErrUnknownSolution = errors.New("solution is not present in the bundle")
	ErrUnknownEntry    = errors.New("entry is not recorded in the bundle")
)

// definitions is the SolutionDefinitions.json document: solution names to
// their entry names, and each entry name to the ids it needs.
type definitions struct {
	Solutions   map[string][]string `json:"Solutions"`
	MapsAndApps map[string]entryDef `json:"MapsAndApps"`
}

type entryDef struct {
	Items  []string `json:"items"`
	Groups []string `json:"groups"`
}

func newDefinitions() definitions {
	return definitions{
		Solutions:   map[string][]string{},
		MapsAndApps: map[string]entryDef{},
	}
}

// Bundle reads solution content from a local bundle directory. It serves both
// as an EntrySource for deployment and as the feature service definition
// source for cloning.
type Bundle struct {
	root string
	defs definitions
}

// OpenBundle opens the bundle rooted at dir and loads its definitions file.
func OpenBundle(dir string) (*Bundle, error) {
	raw, err := os.ReadFile(filepath.Join(dir, definitionsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed reading bundle definitions: %w", err)
	}
	defs := newDefinitions()
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("failed decoding bundle definitions: %w", err)
	}
	return &Bundle{root: dir, defs: defs}, nil
}

// Solutions lists the solution names in the bundle, sorted.
func (b *Bundle) Solutions() []string {
	names := make([]string, 0, len(b.defs.Solutions))
	for name := range b.defs.Solutions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EntryNames lists the deployable map and app names of one solution.
func (b *Bundle) EntryNames(solutionName string) ([]string, error) {
	entries, ok := b.defs.Solutions[solutionName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSolution, solutionName)
	}
	out := make([]string, len(entries))
	copy(out, entries)
	sort.Strings(out)
	return out, nil
}

func (b *Bundle) FindEntry(ctx context.Context, solutionName, name string) (model.Item, bool, error) {
	entries, ok := b.defs.Solutions[solutionName]
	if !ok {
		return model.Item{}, false, nil
	}
	listed := false
	for _, entry := range entries {
		if entry == name {
			listed = true
			break
		}
	}
	if !listed {
		return model.Item{}, false, nil
	}

	def, ok := b.defs.MapsAndApps[name]
	if !ok {
		return model.Item{}, false, fmt.Errorf("%w: %s", ErrUnknownEntry, name)
	}
	for _, id := range def.Items {
		item, err := b.GetItem(ctx, id)
		if err != nil {
			return model.Item{}, false, err
		}
		if item.Title == name {
			return item, true, nil
		}
	}
	return model.Item{}, false, fmt.Errorf("%w: no item titled %q", ErrUnknownEntry, name)
}

// Definition replays the item and group lists recorded for the entry at
// download time. No graph walking happens here; the recorded lists already
// are the transitive closure, in creation-safe order.
func (b *Bundle) Definition(ctx context.Context, entry model.Item) (*model.SolutionDefinition, error) {
	recorded, ok := b.defs.MapsAndApps[entry.Title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, entry.Title)
	}

	def := &model.SolutionDefinition{}
	for _, id := range recorded.Items {
		item, err := b.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		data, err := b.GetItemData(ctx, id)
		if err != nil {
			return nil, err
		}
		sharing, err := b.readSharing(id)
		if err != nil {
			return nil, err
		}
		def.Append(model.SolutionItem{Item: item, Data: data, Sharing: sharing})
	}
	for _, id := range recorded.Groups {
		def.AddGroup(id)
	}
	return def, nil
}

func (b *Bundle) GetItem(_ context.Context, id string) (model.Item, error) {
	var item model.Item
	if err := b.readJSON(b.itemInfoPath(id), &item); err != nil {
		return model.Item{}, fmt.Errorf("failed reading bundled item %s: %w", id, err)
	}
	return item, nil
}

// GetItemData returns the item's data payload, or nil when the bundle holds
// no data file for it.
func (b *Bundle) GetItemData(_ context.Context, id string) (map[string]any, error) {
	dir := filepath.Join(b.root, itemsDirName, id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed reading bundled item directory %s: %w", id, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var data map[string]any
		if err := b.readJSON(filepath.Join(dir, entry.Name()), &data); err != nil {
			return nil, fmt.Errorf("failed decoding bundled item data %s: %w", id, err)
		}
		return data, nil
	}
	return nil, nil
}

func (b *Bundle) GetGroup(_ context.Context, id string) (model.Group, error) {
	var group model.Group
	path := filepath.Join(b.root, groupsDirName, id, groupInfoFileName)
	if err := b.readJSON(path, &group); err != nil {
		return model.Group{}, fmt.Errorf("failed reading bundled group %s: %w", id, err)
	}
	return group, nil
}

// Search evaluates simple portal queries against the bundled items so the
// resolver can run against a bundle too. Supported clauses are title, type
// and tags; owner is accepted and ignored, anything else matches nothing.
func (b *Bundle) Search(ctx context.Context, query string) ([]model.Item, error) {
	clauses, ok := parseQuery(query)
	if !ok {
		return nil, nil
	}

	dirs, err := os.ReadDir(filepath.Join(b.root, itemsDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed listing bundled items: %w", err)
	}

	var out []model.Item
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		item, err := b.GetItem(ctx, dir.Name())
		if err != nil {
			continue
		}
		if matches(item, clauses) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ServiceDefinition returns the service half of the bundled featureserver
// document.
func (b *Bundle) ServiceDefinition(_ context.Context, item model.Item, _ string) (map[string]any, error) {
	doc, err := b.readFeatureServer(item.ID)
	if err != nil {
		return nil, err
	}
	return doc.Service, nil
}

// LayersDefinition returns the layers half of the bundled featureserver
// document.
func (b *Bundle) LayersDefinition(_ context.Context, item model.Item, _ string) (map[string]any, error) {
	doc, err := b.readFeatureServer(item.ID)
	if err != nil {
		return nil, err
	}
	return doc.Layers, nil
}

// ThumbnailURL returns "". Bundled thumbnails are local files with no URL the
// target portal could fetch from.
func (b *Bundle) ThumbnailURL(string, string) string { return "" }

func (b *Bundle) GroupThumbnailURL(model.Group) string { return "" }

type featureServerDoc struct {
	Service map[string]any `json:"service"`
	Layers  map[string]any `json:"layers"`
}

func (b *Bundle) readFeatureServer(id string) (featureServerDoc, error) {
	var doc featureServerDoc
	path := filepath.Join(b.root, itemsDirName, id, esriInfoDirName, featureServerName)
	if err := b.readJSON(path, &doc); err != nil {
		return featureServerDoc{}, fmt.Errorf("failed reading bundled service definition %s: %w", id, err)
	}
	return doc, nil
}

func (b *Bundle) readSharing(id string) (model.Sharing, error) {
	path := filepath.Join(b.root, itemsDirName, id, esriInfoDirName, sharingFileName)
	var sharing model.Sharing
	if err := b.readJSON(path, &sharing); err != nil {
		if os.IsNotExist(err) {
			return model.Sharing{Access: model.AccessPrivate}, nil
		}
		return model.Sharing{}, fmt.Errorf("failed reading bundled sharing %s: %w", id, err)
	}
	return sharing, nil
}

func (b *Bundle) itemInfoPath(id string) string {
	return filepath.Join(b.root, itemsDirName, id, esriInfoDirName, itemInfoFileName)
}

func (b *Bundle) readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type queryClause struct {
	key   string
	value string
}

// parseQuery splits "key:value AND key:\"value\"" style queries. The second
// return is false when the query uses a clause the bundle cannot evaluate.
func parseQuery(query string) ([]queryClause, bool) {
	var clauses []queryClause
	for _, part := range strings.Split(query, " AND ") {
		key, value, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return nil, false
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "title", "type", "tags":
			clauses = append(clauses, queryClause{key: key, value: value})
		case "owner":
			// Bundles have a single implicit owner.
		default:
			return nil, false
		}
	}
	return clauses, true
}

func matches(item model.Item, clauses []queryClause) bool {
	for _, c := range clauses {
		switch c.key {
		case "title":
			if item.Title != c.value {
				return false
			}
		case "type":
			if !strings.EqualFold(item.Type, c.value) {
				return false
			}
		case "tags":
			for _, tag := range strings.Split(c.value, ",") {
				if !item.HasTag(strings.TrimSpace(tag)) {
					return false
				}
			}
		}
	}
	return true
}
