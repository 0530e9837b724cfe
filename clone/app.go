// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/gisops/solclone/solution"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// CloneApp creates a copy of an application. Three template families exist,
// each with its own rewrite rules: Web AppBuilder, Operations Dashboard
// (Operation View), and configurable application templates.
func (c *Cloners) CloneApp(ctx context.Context, original model.Item, data map[string]any, services *model.ServiceMapping, webmaps, groups *model.IDMapping, folder model.Folder, sharing model.Sharing) (model.Item, error) {
	fail := func(partial *Created, err error) (model.Item, error) {
		return model.Item{}, failure(fmt.Sprintf("failed to create application '%s'", original.Title), partial, err)
	}

	props := c.itemProperties(original)
	portalURL := c.Target.PortalURL()

	var text string
	switch {
	case original.HasTypeKeyword(solution.WebAppBuilderKeyword):
		rewritten, err := rewriteWebAppBuilder(data, portalURL, services, webmaps)
		if err != nil {
			return fail(nil, err)
		}
		text = rewritten

	case strings.EqualFold(original.Type, model.TypeOperationView):
		for _, w := range cast.ToSlice(data["widgets"]) {
			widget := cast.ToStringMap(w)
			if id := cast.ToString(widget["mapId"]); id != "" {
				mapped, err := mapID(webmaps, id, "web map")
				if err != nil {
					return fail(nil, err)
				}
				widget["mapId"] = mapped
			}
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return fail(nil, err)
		}
		text = string(encoded)

	default: // Configurable application template
		if _, ok := data["folderId"]; ok {
			data["folderId"] = folder.ID
		}
		if v, ok := data["values"]; ok {
			values := cast.ToStringMap(v)
			if id := cast.ToString(values["group"]); id != "" {
				mapped, err := mapID(groups, id, "group")
				if err != nil {
					return fail(nil, err)
				}
				values["group"] = mapped
			}
			if id := cast.ToString(values["webmap"]); id != "" {
				mapped, err := mapID(webmaps, id, "web map")
				if err != nil {
					return fail(nil, err)
				}
				values["webmap"] = mapped
			}
			data["values"] = values
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return fail(nil, err)
		}
		text = string(encoded)
	}

	props.Text = text
	created, err := c.Target.AddItem(ctx, props, folder.ID)
	if err != nil {
		return fail(nil, err)
	}
	partial := &Created{Kind: KindItem, ID: created.ID, Title: created.Title, FolderID: folder.ID}

	if newURL := rewriteAppURL(original.URL, portalURL, created.ID); newURL != "" {
		update := portal.ItemProperties{URL: newURL}
		if err := c.Target.UpdateItem(ctx, created.ID, folder.ID, update); err != nil {
			return fail(partial, err)
		}
		created.URL = newURL
	}

	if shareable(sharing) {
		if err := c.Target.ShareItem(ctx, created.ID, folder.ID, sharing); err != nil {
			return fail(partial, err)
		}
	}

	c.logger().Debug("cloned application", zap.String("source", original.ID), zap.String("target", created.ID))
	return created, nil
}

// rewriteWebAppBuilder points a Web AppBuilder payload at the target portal
// and maps its web map reference, then substitutes every mapped service URL
// across the serialized text. WAB configuration embeds service URLs in many
// unstructured sub-objects that cannot be enumerated individually.
func rewriteWebAppBuilder(data map[string]any, portalURL string, services *model.ServiceMapping, webmaps *model.IDMapping) (string, error) {
	if _, ok := data["portalUrl"]; ok {
		data["portalUrl"] = portalURL
	}
	if m, ok := data["map"]; ok {
		mapConfig := cast.ToStringMap(m)
		if _, ok := mapConfig["portalUrl"]; ok {
			mapConfig["portalUrl"] = portalURL
		}
		if id := cast.ToString(mapConfig["itemId"]); id != "" {
			mapped, err := mapID(webmaps, id, "web map")
			if err != nil {
				return "", err
			}
			mapConfig["itemId"] = mapped
		}
		data["map"] = mapConfig
	}
	if p, ok := data["httpProxy"]; ok {
		proxy := cast.ToStringMap(p)
		if _, ok := proxy["url"]; ok {
			proxy["url"] = portalURL + "sharing/proxy"
		}
		data["httpProxy"] = proxy
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return swizzleText(string(encoded), services.Entries()), nil
}

// rewriteAppURL rebuilds an application URL against the target portal,
// keeping everything from /apps/ onward and replacing the id= query value
// with the new item's id. Returns "" when the original URL does not follow
// that shape.
func rewriteAppURL(originalURL, portalURL, newID string) string {
	if originalURL == "" {
		return ""
	}
	appsIdx := strings.Index(originalURL, "/apps/")
	if appsIdx < 0 {
		return ""
	}
	newURL := strings.TrimRight(portalURL, "/") + originalURL[appsIdx:]
	idIdx := strings.Index(newURL, "id=")
	if idIdx < 0 {
		return ""
	}
	return newURL[:idIdx+len("id=")] + newID
}

func mapID(m *model.IDMapping, sourceID, what string) (string, error) {
	target, ok := m.Lookup(sourceID)
	if !ok {
		return "", fmt.Errorf("%w: %s %s", ErrUnmappedReference, what, sourceID)
	}
	return target, nil
}
