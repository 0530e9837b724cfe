// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package solution

import (
	"context"
	"fmt"
	"strings"

	"emperror.dev/emperror"
	"github.com/gisops/solclone/model"
	"github.com/spf13/cast"
)

// Source is where solution content is read from: a live portal or a local
// bundle directory.
type Source interface {
	GetItem(ctx context.Context, id string) (model.Item, error)
	GetItemData(ctx context.Context, id string) (map[string]any, error)
	GetGroup(ctx context.Context, id string) (model.Group, error)
	Search(ctx context.Context, query string) ([]model.Item, error)
}

// WebAppBuilderKeyword marks applications built with Web AppBuilder; their
// payload shape differs from configurable templates.
const WebAppBuilderKeyword = "Web AppBuilder"

// Resolve walks the dependency graph of a map or app and returns the
// transitive closure of items and groups it needs. Resolution is
// deterministic: re-resolving the same root against the same source state
// yields an equal definition.
func Resolve(ctx context.Context, src Source, root model.Item) (*model.SolutionDefinition, error) {
	def := &model.SolutionDefinition{}
	if err := resolveItem(ctx, src, root, def, ""); err != nil {
		return nil, err
	}
	return def, nil
}

func resolveItem(ctx context.Context, src Source, item model.Item, def *model.SolutionDefinition, groupID string) error {
	if def.Contains(item.ID) {
		return nil
	}

	switch {
	case typeIs(item, model.TypeWebApp) || typeIs(item, model.TypeOperationView):
		return resolveApp(ctx, src, item, def, groupID)
	case typeIs(item, model.TypeWebMap):
		return resolveWebMap(ctx, src, item, def, groupID)
	default:
		// Unrecognized types ride along opaquely with the caller's sharing
		// context and no payload.
		def.Append(model.SolutionItem{Item: item, Sharing: sharingFor(groupID)})
		return nil
	}
}

// resolveApp appends an application or dashboard and descends into the web
// map (or group of web maps) it is built from.
func resolveApp(ctx context.Context, src Source, item model.Item, def *model.SolutionDefinition, groupID string) error {
	data, err := src.GetItemData(ctx, item.ID)
	if err != nil {
		return emperror.WrapWith(err, "failed fetching application data", "id", item.ID, "title", item.Title)
	}
	def.Append(model.SolutionItem{Item: item, Data: data, Sharing: sharingFor(groupID)})

	var webmapID string
	switch {
	case typeIs(item, model.TypeOperationView):
		// Operations Dashboard: the first widget bound to a map wins.
		for _, w := range cast.ToSlice(data["widgets"]) {
			widget := cast.ToStringMap(w)
			if id := cast.ToString(widget["mapId"]); id != "" {
				webmapID = id
				break
			}
		}

	case item.HasTypeKeyword(WebAppBuilderKeyword):
		webmapID = cast.ToString(cast.ToStringMap(data["map"])["itemId"])

	default: // Configurable application template
		values := cast.ToStringMap(data["values"])
		if gid := cast.ToString(values["group"]); gid != "" {
			def.AddGroup(gid)
			if err := resolveGroupMaps(ctx, src, gid, def); err != nil {
				return err
			}
		}
		if id := cast.ToString(values["webmap"]); id != "" {
			webmapID = id
		}
	}

	if webmapID == "" || def.Contains(webmapID) {
		return nil
	}

	webmap, err := src.GetItem(ctx, webmapID)
	if err != nil {
		return emperror.WrapWith(err, "failed fetching referenced web map", "id", webmapID, "app", item.Title)
	}
	return resolveItem(ctx, src, webmap, def, "")
}

// resolveGroupMaps resolves every web map shared to the given group, passing
// the group down as sharing context.
func resolveGroupMaps(ctx context.Context, src Source, groupID string, def *model.SolutionDefinition) error {
	query := fmt.Sprintf("group:%s AND type:%s", groupID, model.TypeWebMap)
	items, err := src.Search(ctx, query)
	if err != nil {
		return emperror.WrapWith(err, "failed searching group web maps", "group", groupID)
	}
	for _, found := range items {
		if !typeIs(found, model.TypeWebMap) {
			continue
		}
		if err := resolveItem(ctx, src, found, def, groupID); err != nil {
			return err
		}
	}
	return nil
}

// resolveWebMap appends a web map and the feature services referenced by its
// operational layers and tables. Services always enter the definition
// private and unshared.
func resolveWebMap(ctx context.Context, src Source, item model.Item, def *model.SolutionDefinition, groupID string) error {
	data, err := src.GetItemData(ctx, item.ID)
	if err != nil {
		return emperror.WrapWith(err, "failed fetching web map data", "id", item.ID, "title", item.Title)
	}
	def.Append(model.SolutionItem{Item: item, Data: data, Sharing: sharingFor(groupID)})

	var serviceIDs []string
	for _, l := range cast.ToSlice(data["operationalLayers"]) {
		layer := cast.ToStringMap(l)
		if cast.ToString(layer["layerType"]) != "ArcGISFeatureLayer" {
			continue
		}
		if id := cast.ToString(layer["itemId"]); id != "" {
			serviceIDs = appendUnique(serviceIDs, id)
		}
	}
	for _, t := range cast.ToSlice(data["tables"]) {
		if id := cast.ToString(cast.ToStringMap(t)["itemId"]); id != "" {
			serviceIDs = appendUnique(serviceIDs, id)
		}
	}

	for _, id := range serviceIDs {
		if def.Contains(id) {
			continue
		}
		service, err := src.GetItem(ctx, id)
		if err != nil {
			return emperror.WrapWith(err, "failed fetching referenced service", "id", id, "map", item.Title)
		}
		def.Append(model.SolutionItem{Item: service, Sharing: model.Sharing{Access: model.AccessPrivate}})
	}
	return nil
}

func sharingFor(groupID string) model.Sharing {
	s := model.Sharing{Access: model.AccessPrivate}
	if groupID != "" {
		s.Groups = []string{groupID}
	}
	return s
}

func typeIs(item model.Item, t string) bool {
	return strings.EqualFold(item.Type, t)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
