// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gisops/solclone/model"
	"go.uber.org/zap"
)

// CloneWebMap creates a copy of a web map whose layer and table references
// point at the services already cloned this run. The definition is swizzled
// through the service mapping before the item is added.
func (c *Cloners) CloneWebMap(ctx context.Context, original model.Item, data map[string]any, services *model.ServiceMapping, extent model.Extent, folder model.Folder, sharing model.Sharing) (model.Item, error) {
	fail := func(partial *Created, err error) (model.Item, error) {
		return model.Item{}, failure(fmt.Sprintf("failed to create web map '%s'", original.Title), partial, err)
	}

	swizzleWebMap(data, services.Entries())

	text, err := json.Marshal(data)
	if err != nil {
		return fail(nil, err)
	}

	props := c.itemProperties(original)
	props.Name = uniqueName(original.Name)
	props.Extent = extent.String()
	props.Text = string(text)

	created, err := c.Target.AddItem(ctx, props, folder.ID)
	if err != nil {
		return fail(nil, err)
	}
	partial := &Created{Kind: KindItem, ID: created.ID, Title: created.Title, FolderID: folder.ID}

	if shareable(sharing) {
		if err := c.Target.ShareItem(ctx, created.ID, folder.ID, sharing); err != nil {
			return fail(partial, err)
		}
	}

	c.logger().Debug("cloned web map", zap.String("source", original.ID), zap.String("target", created.ID))
	return created, nil
}
