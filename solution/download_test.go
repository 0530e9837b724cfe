// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package solution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gisops/solclone/gateway"
	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServiceDefs struct{}

func (fakeServiceDefs) ServiceDefinition(context.Context, model.Item, string) (map[string]any, error) {
	return map[string]any{"name": "Hydrants", "maxRecordCount": float64(1000)}, nil
}

func (fakeServiceDefs) LayersDefinition(context.Context, model.Item, string) (map[string]any, error) {
	return map[string]any{"layers": []any{map[string]any{"id": float64(0)}}}, nil
}

// newDownloadSource serves a one-map, one-service solution: the tagged entry
// "Fire Map" references the feature service svc1 through an operational
// layer. The service's data endpoint fails, exercising the best-effort path.
func newDownloadSource(t *testing.T) *portal.Client {
	t.Helper()

	entry := model.Item{
		ID:    "map1",
		Type:  model.TypeWebMap,
		Title: "Fire Map",
		Name:  "FireMap",
		Tags:  []string{SolutionTag, SolutionTagPrefix + "Fire"},
	}
	service := model.Item{
		ID:    "svc1",
		Type:  model.TypeFeatureService,
		Title: "Hydrants",
		Name:  "Hydrants",
		URL:   "https://src/rest/services/Hydrants/FeatureServer",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")

		var body any
		switch {
		case r.URL.Path == "/sharing/rest/search":
			require.True(t, strings.Contains(r.Form.Get("q"), SolutionTagPrefix+"Fire"))
			body = map[string]any{"results": []model.Item{entry}}
		case r.URL.Path == "/sharing/rest/content/items/map1/data":
			body = map[string]any{
				"operationalLayers": []any{
					map[string]any{
						"itemId":    "svc1",
						"url":       service.URL + "/0",
						"layerType": "ArcGISFeatureLayer",
					},
				},
			}
		case r.URL.Path == "/sharing/rest/content/items/svc1/data":
			body = map[string]any{"error": map[string]any{"message": "no data", "code": 500}}
		case r.URL.Path == "/sharing/rest/content/items/svc1":
			body = service
		default:
			t.Errorf("unexpected portal path %s", r.URL.Path)
			body = map[string]any{"error": map[string]any{"message": "not found", "code": 404}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(server.Close)

	c, err := portal.New(portal.Config{
		Address:  server.URL,
		Username: "jane",
	}, gateway.New(gateway.Config{}, nil))
	require.NoError(t, err)
	return c
}

func TestDownloadWritesBundle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	d := &Downloader{Source: newDownloadSource(t), Defs: fakeServiceDefs{}}
	require.NoError(d.Download(context.Background(), "Fire", dir))

	// The recorded definitions list the entry and its closure.
	raw, err := os.ReadFile(filepath.Join(dir, "SolutionDefinitions.json"))
	require.NoError(err)
	var defs struct {
		Solutions   map[string][]string `json:"Solutions"`
		MapsAndApps map[string]struct {
			Items  []string `json:"items"`
			Groups []string `json:"groups"`
		} `json:"MapsAndApps"`
	}
	require.NoError(json.Unmarshal(raw, &defs))
	assert.Equal([]string{"Fire Map"}, defs.Solutions["Fire"])
	assert.Equal([]string{"map1", "svc1"}, defs.MapsAndApps["Fire Map"].Items)
	assert.Empty(defs.MapsAndApps["Fire Map"].Groups)

	// The map carries its payload; the service has none but records its
	// definitions for offline cloning.
	assert.FileExists(filepath.Join(dir, "items", "map1", "esriinfo", "iteminfo.json"))
	assert.FileExists(filepath.Join(dir, "items", "map1", "esriinfo", "sharing.json"))
	assert.FileExists(filepath.Join(dir, "items", "map1", "map1.json"))
	assert.FileExists(filepath.Join(dir, "items", "svc1", "esriinfo", "featureserver.json"))
	assert.NoFileExists(filepath.Join(dir, "items", "svc1", "svc1.json"))
}

func TestDownloadRoundTripsThroughBundle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	d := &Downloader{Source: newDownloadSource(t), Defs: fakeServiceDefs{}}
	require.NoError(d.Download(context.Background(), "Fire", dir))

	bundle, err := OpenBundle(dir)
	require.NoError(err)

	entry, found, err := bundle.FindEntry(context.Background(), "Fire", "Fire Map")
	require.NoError(err)
	require.True(found)
	assert.Equal("map1", entry.ID)

	def, err := bundle.Definition(context.Background(), entry)
	require.NoError(err)
	require.Len(def.Items, 2)
	assert.Equal("map1", def.Items[0].Item.ID)
	assert.NotNil(def.Items[0].Data["operationalLayers"])
	assert.Equal("svc1", def.Items[1].Item.ID)
	assert.Equal(model.AccessPrivate, def.Items[1].Sharing.Access)

	serviceDef, err := bundle.ServiceDefinition(context.Background(), def.Items[1].Item, "")
	require.NoError(err)
	assert.Equal("Hydrants", serviceDef["name"])
}

func TestDownloadMergesExistingBundle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	d := &Downloader{Source: newDownloadSource(t), Defs: fakeServiceDefs{}}
	require.NoError(d.Download(context.Background(), "Fire", dir))
	require.NoError(d.Download(context.Background(), "Fire", dir))

	raw, err := os.ReadFile(filepath.Join(dir, "SolutionDefinitions.json"))
	require.NoError(err)
	var defs struct {
		Solutions map[string][]string `json:"Solutions"`
	}
	require.NoError(json.Unmarshal(raw, &defs))
	assert.Equal([]string{"Fire Map"}, defs.Solutions["Fire"])
}

func TestDownloadFiltersByName(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d := &Downloader{Source: newDownloadSource(t), Defs: fakeServiceDefs{}}

	err := d.Download(context.Background(), "Fire", t.TempDir(), "Water Map")
	assert.ErrorContains(err, "has no tagged maps or apps")

	dir := t.TempDir()
	require.NoError(d.Download(context.Background(), "Fire", dir, "Fire Map"))
	assert.FileExists(filepath.Join(dir, "items", "map1", "esriinfo", "iteminfo.json"))
}

func TestDownloadUnknownSolution(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	t.Cleanup(server.Close)

	c, err := portal.New(portal.Config{Address: server.URL, Username: "jane"}, gateway.New(gateway.Config{}, nil))
	require.NoError(t, err)

	d := &Downloader{Source: c, Defs: fakeServiceDefs{}}
	err = d.Download(context.Background(), "Nope", t.TempDir())
	assert.ErrorContains(err, "has no tagged maps or apps")
}
