// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"regexp"
	"strings"

	"github.com/gisops/solclone/model"
	"github.com/spf13/cast"
)

// urlPattern builds the case-insensitive match pattern for a source service
// URL. Layer and table URLs are the service URL plus a trailing index, so a
// prefix substitution rewrites them in one pass.
func urlPattern(sourceURL string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(sourceURL))
}

// swizzleWebMap rewrites a web map definition in place: every operational
// feature layer and table pointing at a mapped source service gets its itemId
// and url replaced with the target's. Entries apply in insertion order so an
// earlier service's URL is fully rewritten before a later pattern is tried.
func swizzleWebMap(data map[string]any, entries []model.ServiceMapEntry) {
	for _, entry := range entries {
		pattern := urlPattern(entry.SourceURL)

		for _, l := range cast.ToSlice(data["operationalLayers"]) {
			layer := cast.ToStringMap(l)
			if cast.ToString(layer["layerType"]) != "ArcGISFeatureLayer" {
				continue
			}
			swizzleLayer(layer, entry, pattern)
		}
		for _, t := range cast.ToSlice(data["tables"]) {
			swizzleLayer(cast.ToStringMap(t), entry, pattern)
		}
	}
}

func swizzleLayer(layer map[string]any, entry model.ServiceMapEntry, pattern *regexp.Regexp) {
	if id, ok := layer["itemId"]; ok && strings.EqualFold(cast.ToString(id), entry.SourceID) {
		layer["itemId"] = entry.TargetID
	}
	if u, ok := layer["url"]; ok {
		layer["url"] = pattern.ReplaceAllLiteralString(cast.ToString(u), entry.TargetURL)
	}
}

// swizzleText substitutes every mapped service URL across serialized JSON
// text. Used for Web AppBuilder payloads, which embed service URLs in
// arbitrary nested configuration that cannot be enumerated field by field.
func swizzleText(text string, entries []model.ServiceMapEntry) string {
	for _, entry := range entries {
		text = urlPattern(entry.SourceURL).ReplaceAllLiteralString(text, entry.TargetURL)
	}
	return text
}
