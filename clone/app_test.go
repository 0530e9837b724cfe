// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gisops/solclone/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appPortal handles the add/get/update/share sequence CloneApp drives and
// records what was submitted.
func appPortal(t *testing.T, addForm, updateForm map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/content/users/jane/f1/addItem":
			require.NoError(t, r.ParseForm())
			for k := range r.Form {
				addForm[k] = r.Form.Get(k)
			}
			w.Write([]byte(`{"success": true, "id": "newapp"}`))
		case "/sharing/rest/content/items/newapp":
			w.Write([]byte(`{"id": "newapp", "type": "Web Mapping Application", "title": "Inspector"}`))
		case "/sharing/rest/content/users/jane/f1/items/newapp/update":
			require.NoError(t, r.ParseForm())
			for k := range r.Form {
				updateForm[k] = r.Form.Get(k)
			}
			w.Write([]byte(`{"success": true}`))
		case "/sharing/rest/content/users/jane/f1/items/newapp/share":
			w.Write([]byte(`{"itemId": "newapp"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
}

func TestCloneAppWebAppBuilder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	addForm := map[string]string{}
	updateForm := map[string]string{}
	cloners, _, _ := newTestCloners(t, appPortal(t, addForm, updateForm))

	services := model.NewServiceMapping()
	services.Add(model.ServiceMapEntry{
		SourceID:  "svcsrc",
		SourceURL: "https://src/services/Hydrants/FeatureServer",
		TargetID:  "svcdst",
		TargetURL: "https://dst/services/Hydrants_x/FeatureServer",
	})
	webmaps := model.NewIDMapping()
	webmaps.Add("mapsrc", "mapdst")

	original := model.Item{
		ID:           "appsrc",
		Type:         model.TypeWebApp,
		Title:        "Inspector",
		TypeKeywords: []string{"Web AppBuilder"},
		URL:          "https://source.maps.arcgis.com/apps/webappviewer/index.html?id=appsrc",
	}
	data := map[string]any{
		"portalUrl": "https://source.maps.arcgis.com/",
		"map": map[string]any{
			"portalUrl": "https://source.maps.arcgis.com/",
			"itemId":    "mapsrc",
		},
		"httpProxy": map[string]any{"url": "https://source.maps.arcgis.com/sharing/proxy"},
		"widgetConfig": map[string]any{
			"layerUrl": "https://src/services/Hydrants/FeatureServer/0",
		},
	}

	created, err := cloners.CloneApp(context.Background(), original, data, services, webmaps,
		model.NewIDMapping(), model.Folder{ID: "f1"}, model.Sharing{Access: model.AccessOrg})
	require.NoError(err)
	assert.Equal("newapp", created.ID)

	var submitted map[string]any
	require.NoError(json.Unmarshal([]byte(addForm["text"]), &submitted))

	portalURL := cloners.Target.PortalURL()
	assert.Equal(portalURL, submitted["portalUrl"])
	mapConfig := submitted["map"].(map[string]any)
	assert.Equal(portalURL, mapConfig["portalUrl"])
	assert.Equal("mapdst", mapConfig["itemId"])
	assert.Equal(portalURL+"sharing/proxy", submitted["httpProxy"].(map[string]any)["url"])
	assert.Equal("https://dst/services/Hydrants_x/FeatureServer/0",
		submitted["widgetConfig"].(map[string]any)["layerUrl"])

	assert.Contains(addForm["tags"], "source-appsrc")

	// The app URL is rebuilt against the target portal with the new id.
	assert.Equal(portalURL+"apps/webappviewer/index.html?id=newapp", updateForm["url"])
}

func TestCloneAppOperationView(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	addForm := map[string]string{}
	cloners, _, _ := newTestCloners(t, appPortal(t, addForm, map[string]string{}))

	webmaps := model.NewIDMapping()
	webmaps.Add("mapsrc", "mapdst")

	data := map[string]any{
		"widgets": []any{
			map[string]any{"type": "indicator"},
			map[string]any{"type": "map", "mapId": "mapsrc"},
		},
	}

	_, err := cloners.CloneApp(context.Background(),
		model.Item{ID: "viewsrc", Type: model.TypeOperationView, Title: "Ops"},
		data, model.NewServiceMapping(), webmaps, model.NewIDMapping(),
		model.Folder{ID: "f1"}, model.Sharing{})
	require.NoError(err)

	var submitted map[string]any
	require.NoError(json.Unmarshal([]byte(addForm["text"]), &submitted))
	widgets := submitted["widgets"].([]any)
	assert.Equal("mapdst", widgets[1].(map[string]any)["mapId"])
}

func TestCloneAppTemplate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	addForm := map[string]string{}
	cloners, _, _ := newTestCloners(t, appPortal(t, addForm, map[string]string{}))

	webmaps := model.NewIDMapping()
	webmaps.Add("mapsrc", "mapdst")
	groups := model.NewIDMapping()
	groups.Add("grpsrc", "grpdst")

	data := map[string]any{
		"folderId": "oldfolder",
		"values":   map[string]any{"group": "grpsrc", "webmap": "mapsrc"},
	}

	_, err := cloners.CloneApp(context.Background(),
		model.Item{ID: "appsrc", Type: model.TypeWebApp, Title: "Gallery"},
		data, model.NewServiceMapping(), webmaps, groups,
		model.Folder{ID: "f1"}, model.Sharing{})
	require.NoError(err)

	var submitted map[string]any
	require.NoError(json.Unmarshal([]byte(addForm["text"]), &submitted))
	assert.Equal("f1", submitted["folderId"])
	values := submitted["values"].(map[string]any)
	assert.Equal("grpdst", values["group"])
	assert.Equal("mapdst", values["webmap"])
}

func TestCloneAppUnmappedReference(t *testing.T) {
	assert := assert.New(t)

	// No portal call may happen when a reference cannot be mapped.
	cloners, _, _ := newTestCloners(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected portal call %s", r.URL.Path)
	}))

	data := map[string]any{"values": map[string]any{"webmap": "nevercloned"}}
	_, err := cloners.CloneApp(context.Background(),
		model.Item{ID: "appsrc", Type: model.TypeWebApp, Title: "Gallery"},
		data, model.NewServiceMapping(), model.NewIDMapping(), model.NewIDMapping(),
		model.Folder{ID: "f1"}, model.Sharing{})

	assert.ErrorIs(err, ErrUnmappedReference)
}
