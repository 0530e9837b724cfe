// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gisops/solclone/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneGroup(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// "Fire Response" and "Fire Response 2" are taken; the probe must land
	// on "Fire Response 3".
	taken := map[string]bool{"Fire Response": true, "Fire Response 2": true}

	cloners, _, _ := newTestCloners(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/community/groups":
			q := r.URL.Query().Get("q")
			for title := range taken {
				if q == fmt.Sprintf("owner:jane AND title:%q", title) {
					w.Write([]byte(`{"results": [{"id": "other", "title": "` + title + `"}]}`))
					return
				}
			}
			w.Write([]byte(`{"results": []}`))
		case "/sharing/rest/community/createGroup":
			require.NoError(r.ParseForm())
			assert.Equal("Fire Response 3", r.Form.Get("title"))
			assert.Equal(model.AccessPrivate, r.Form.Get("access"))
			assert.Equal("true", r.Form.Get("isInvitationOnly"))
			assert.Equal("true", r.Form.Get("isViewOnly"))
			assert.Equal("fire,source-g0,sourcefolder-f1", r.Form.Get("tags"))
			assert.Contains(r.Form.Get("thumbnailurl"), "/community/groups/g0/info/")
			w.Write([]byte(`{"success": true, "group": {"id": "g9", "title": "Fire Response 3"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	created, err := cloners.CloneGroup(context.Background(), model.Group{
		ID:        "g0",
		Title:     "Fire Response",
		Tags:      []string{"fire"},
		Thumbnail: "crest.png",
	}, model.Folder{ID: "f1", Title: "Fire"})

	require.NoError(err)
	assert.Equal("g9", created.ID)
	assert.Equal("Fire Response 3", created.Title)
}

func TestCloneGroupProbeBound(t *testing.T) {
	assert := assert.New(t)

	// Every title is taken; the probe must give up instead of searching
	// forever.
	cloners, _, _ := newTestCloners(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/community/groups":
			w.Write([]byte(`{"results": [{"id": "other", "title": "taken"}]}`))
		default:
			t.Fatalf("group should never be created, got %s", r.URL.Path)
		}
	}))

	_, err := cloners.CloneGroup(context.Background(), model.Group{ID: "g0", Title: "Fire Response"}, model.Folder{ID: "f1"})
	assert.Error(err)

	var createErr *CreateError
	assert.ErrorAs(err, &createErr)
	assert.Nil(createErr.Partial)
	assert.Contains(err.Error(), "no unique group title")
}
