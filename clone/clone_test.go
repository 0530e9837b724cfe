// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gisops/solclone/gateway"
	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/stretchr/testify/require"
)

type fakeDefs struct {
	service map[string]any
	layers  map[string]any
}

func (f *fakeDefs) ServiceDefinition(context.Context, model.Item, string) (map[string]any, error) {
	return f.service, nil
}

func (f *fakeDefs) LayersDefinition(context.Context, model.Item, string) (map[string]any, error) {
	return f.layers, nil
}

type adminCall struct {
	ServiceURL string
	SubPath    string
	Definition any
}

type fakeAdmin struct {
	calls []adminCall
	err   error
}

func (f *fakeAdmin) AddToDefinition(_ context.Context, serviceURL, subPath string, definition any) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, adminCall{ServiceURL: serviceURL, SubPath: subPath, Definition: definition})
	return nil
}

type fakeThumbs struct{}

func (fakeThumbs) ThumbnailURL(itemID, thumbnail string) string {
	if thumbnail == "" {
		return ""
	}
	return "https://source/sharing/rest/content/items/" + itemID + "/info/" + thumbnail
}

func (fakeThumbs) GroupThumbnailURL(group model.Group) string {
	if group.Thumbnail == "" {
		return ""
	}
	return "https://source/sharing/rest/community/groups/" + group.ID + "/info/" + group.Thumbnail
}

// newTestCloners builds a Cloners whose target portal talks to the given
// handler.
func newTestCloners(t *testing.T, handler http.Handler) (*Cloners, *fakeAdmin, *fakeDefs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	target, err := portal.New(portal.Config{
		Address:  server.URL,
		Username: "jane",
		Token:    "sometoken",
	}, gateway.New(gateway.Config{}, nil))
	require.NoError(t, err)

	admin := &fakeAdmin{}
	defs := &fakeDefs{}
	return &Cloners{
		Target:     target,
		Defs:       defs,
		Thumbnails: fakeThumbs{},
		Admin:      admin,
	}, admin, defs
}
