// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gisops/solclone/model"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// addDefinition is the service-level addToDefinition payload. Layers must
// serialize before tables; the backend builds the service incrementally and
// rejects tables whose layers it has not seen.
type addDefinition struct {
	Layers []any `json:"layers"`
	Tables []any `json:"tables"`
}

// CloneService creates a copy of a hosted feature service: an empty service
// from the source's service definition, then the layer and table schemas, then
// the relationships, then the item properties. The new service's internal name
// gets a random unique suffix so it cannot collide with any existing service.
func (c *Cloners) CloneService(ctx context.Context, original model.Item, sourceURL string, data map[string]any, extent model.Extent, folder model.Folder, sharing model.Sharing) (model.Item, error) {
	fail := func(partial *Created, err error) (model.Item, error) {
		return model.Item{}, failure(fmt.Sprintf("failed to create service '%s'", original.Title), partial, err)
	}

	serviceDef, err := c.Defs.ServiceDefinition(ctx, original, sourceURL)
	if err != nil {
		return fail(nil, err)
	}

	createParams := make(map[string]any, len(serviceDef))
	for k, v := range serviceDef {
		createParams[k] = v
	}
	delete(createParams, "layers")
	delete(createParams, "tables")
	createParams["name"] = uniqueName(original.Name)

	encoded, err := json.Marshal(createParams)
	if err != nil {
		return fail(nil, err)
	}

	itemID, newURL, err := c.Target.CreateService(ctx, string(encoded), folder.ID)
	if err != nil {
		return fail(nil, err)
	}
	partial := &Created{Kind: KindItem, ID: itemID, Title: original.Title, FolderID: folder.ID}

	layersDef, err := c.Defs.LayersDefinition(ctx, original, sourceURL)
	if err != nil {
		return fail(partial, err)
	}

	// Relationships must be withheld until every layer and table exists, then
	// added back one layer at a time against that layer's admin endpoint.
	relationships := map[string]any{}
	definition := addDefinition{}
	for _, t := range cast.ToSlice(layersDef["tables"]) {
		definition.Tables = append(definition.Tables, stripRelationships(t, relationships))
	}
	for _, l := range cast.ToSlice(layersDef["layers"]) {
		definition.Layers = append(definition.Layers, stripRelationships(l, relationships))
	}

	if err := c.Admin.AddToDefinition(ctx, newURL, "", definition); err != nil {
		return fail(partial, err)
	}

	for _, id := range sortedKeys(relationships) {
		payload := map[string]any{"relationships": relationships[id]}
		if err := c.Admin.AddToDefinition(ctx, newURL, id, payload); err != nil {
			return fail(partial, err)
		}
	}

	props := c.itemProperties(original)
	props.Extent = extent.String()
	if data != nil {
		text, err := json.Marshal(data)
		if err != nil {
			return fail(partial, err)
		}
		props.Text = string(text)
	}
	if err := c.Target.UpdateItem(ctx, itemID, folder.ID, props); err != nil {
		return fail(partial, err)
	}

	if shareable(sharing) {
		if err := c.Target.ShareItem(ctx, itemID, folder.ID, sharing); err != nil {
			return fail(partial, err)
		}
	}

	c.logger().Debug("cloned service", zap.String("source", original.ID), zap.String("target", itemID), zap.String("url", newURL))
	return model.Item{
		ID:     itemID,
		Type:   model.TypeFeatureService,
		Title:  original.Title,
		URL:    newURL,
		Folder: folder.ID,
	}, nil
}

// stripRelationships empties a layer/table's relationships array, recording
// the original under the layer id when non-empty.
func stripRelationships(raw any, collected map[string]any) any {
	layer := cast.ToStringMap(raw)
	rels := cast.ToSlice(layer["relationships"])
	if len(rels) > 0 {
		collected[cast.ToString(layer["id"])] = rels
		layer["relationships"] = []any{}
	}
	return layer
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// uniqueName suffixes a service or map name with a freshly generated token.
// The token is never reused, so no collision retry is needed.
func uniqueName(base string) string {
	return fmt.Sprintf("%s_%s", base, strings.ReplaceAll(uuid.NewString(), "-", ""))
}
