// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gisops/solclone/gateway"
	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/stretchr/testify/require"
)

// testPortal is an in-memory stand-in for the target portal. It implements
// just enough of the sharing REST surface for the deployment sequence:
// search, folders, item and group creation, sharing and deletion.
type testPortal struct {
	t *testing.T

	mu      sync.Mutex
	nextID  int
	items   map[string]*storedItem
	groups  map[string]*storedGroup
	folders []model.Folder

	// created records every object creation in order, as kind:title.
	created []string

	// failAddItemTitled makes addItem return a portal error payload for
	// items with the given title.
	failAddItemTitled string

	server *httptest.Server
}

type storedItem struct {
	model.Item
	Text    string
	Extent  string
	Sharing model.Sharing
}

type storedGroup struct {
	model.Group
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()
	p := &testPortal{
		t:      t,
		items:  map[string]*storedItem{},
		groups: map[string]*storedGroup{},
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *testPortal) client(t *testing.T) *portal.Client {
	t.Helper()
	c, err := portal.New(portal.Config{
		Address:  p.server.URL,
		Username: "jane",
		Token:    "sometoken",
	}, gateway.New(gateway.Config{}, nil))
	require.NoError(t, err)
	return c
}

func (p *testPortal) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s%d", prefix, p.nextID)
}

func (p *testPortal) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		p.t.Fatalf("bad form: %v", err)
	}

	path := strings.TrimPrefix(r.URL.Path, "/sharing/rest/")
	switch {
	case path == "search":
		p.reply(w, map[string]any{"results": p.searchItems(r.Form.Get("q"))})

	case path == "community/groups":
		p.reply(w, map[string]any{"results": p.searchGroups(r.Form.Get("q"))})

	case path == "community/createGroup":
		p.createGroup(w, r)

	case strings.HasPrefix(path, "community/groups/") && strings.HasSuffix(path, "/delete"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "community/groups/"), "/delete")
		delete(p.groups, id)
		p.reply(w, map[string]any{"success": true})

	case strings.HasPrefix(path, "content/items/"):
		id := strings.TrimPrefix(path, "content/items/")
		item, ok := p.items[id]
		if !ok {
			p.reply(w, map[string]any{"error": map[string]any{"message": "item not found", "code": 400}})
			return
		}
		p.reply(w, item.Item)

	case path == "content/users/jane":
		p.reply(w, map[string]any{"folders": p.folders})

	case path == "content/users/jane/createFolder":
		folder := model.Folder{ID: p.id("folder"), Title: r.Form.Get("title")}
		p.folders = append(p.folders, folder)
		p.reply(w, map[string]any{"success": true, "folder": folder})

	case strings.HasPrefix(path, "content/users/jane/"):
		p.handleFolderScoped(w, r, strings.TrimPrefix(path, "content/users/jane/"))

	default:
		p.t.Fatalf("unexpected portal path %s", r.URL.Path)
	}
}

func (p *testPortal) handleFolderScoped(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	folderID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "addItem":
		if r.Form.Get("title") == p.failAddItemTitled {
			p.reply(w, map[string]any{"error": map[string]any{"message": "simulated failure", "code": 500}})
			return
		}
		item := &storedItem{
			Item: model.Item{
				ID:     p.id("item"),
				Type:   r.Form.Get("type"),
				Title:  r.Form.Get("title"),
				Name:   r.Form.Get("name"),
				Owner:  "jane",
				Folder: folderID,
				Tags:   splitTags(r.Form.Get("tags")),
			},
			Text:   r.Form.Get("text"),
			Extent: r.Form.Get("extent"),
		}
		p.items[item.ID] = item
		p.created = append(p.created, strings.ToLower(item.Type)+":"+item.Title)
		p.reply(w, map[string]any{"success": true, "id": item.ID})

	case len(parts) == 2 && parts[1] == "createService":
		var params map[string]any
		if err := json.Unmarshal([]byte(r.Form.Get("createParameters")), &params); err != nil {
			p.t.Fatalf("bad createParameters: %v", err)
		}
		name, _ := params["name"].(string)
		item := &storedItem{
			Item: model.Item{
				ID:     p.id("item"),
				Type:   model.TypeFeatureService,
				Title:  name,
				Name:   name,
				Owner:  "jane",
				Folder: folderID,
				URL:    fmt.Sprintf("https://dst/services/%s/FeatureServer", name),
			},
		}
		p.items[item.ID] = item
		p.created = append(p.created, "service:"+name)
		p.reply(w, map[string]any{"success": true, "itemId": item.ID, "serviceurl": item.URL})

	case len(parts) == 3 && parts[1] == "items":
		p.t.Fatalf("unexpected item operation path %s", r.URL.Path)

	case len(parts) == 4 && parts[1] == "items":
		id, op := parts[2], parts[3]
		item, ok := p.items[id]
		if !ok {
			p.reply(w, map[string]any{"error": map[string]any{"message": "item not found", "code": 400}})
			return
		}
		switch op {
		case "update":
			if tags := r.Form.Get("tags"); tags != "" {
				item.Tags = splitTags(tags)
			}
			if title := r.Form.Get("title"); title != "" {
				item.Title = title
			}
			if text := r.Form.Get("text"); text != "" {
				item.Text = text
			}
			if extent := r.Form.Get("extent"); extent != "" {
				item.Extent = extent
			}
			if u := r.Form.Get("url"); u != "" {
				item.URL = u
			}
			p.reply(w, map[string]any{"success": true})
		case "share":
			item.Sharing = model.Sharing{
				Access: model.AccessPrivate,
				Groups: splitTags(r.Form.Get("groups")),
			}
			if r.Form.Get("everyone") == "true" {
				item.Sharing.Access = model.AccessEveryone
			} else if r.Form.Get("org") == "true" {
				item.Sharing.Access = model.AccessOrg
			}
			p.reply(w, map[string]any{"itemId": id})
		case "delete":
			delete(p.items, id)
			p.reply(w, map[string]any{"success": true})
		default:
			p.t.Fatalf("unexpected item operation %s", op)
		}

	default:
		p.t.Fatalf("unexpected folder path %s", r.URL.Path)
	}
}

func (p *testPortal) createGroup(w http.ResponseWriter, r *http.Request) {
	group := &storedGroup{
		Group: model.Group{
			ID:               p.id("group"),
			Title:            r.Form.Get("title"),
			Access:           r.Form.Get("access"),
			Tags:             splitTags(r.Form.Get("tags")),
			IsInvitationOnly: r.Form.Get("isInvitationOnly") == "true",
			IsViewOnly:       r.Form.Get("isViewOnly") == "true",
		},
	}
	p.groups[group.ID] = group
	p.created = append(p.created, "group:"+group.Title)
	p.reply(w, map[string]any{"success": true, "group": group.Group})
}

func (p *testPortal) searchItems(query string) []model.Item {
	var out []model.Item
	for _, item := range p.items {
		if matchesQuery(query, item.Title, item.Type, item.Tags) {
			out = append(out, item.Item)
		}
	}
	return out
}

func (p *testPortal) searchGroups(query string) []model.Group {
	var out []model.Group
	for _, group := range p.groups {
		if matchesQuery(query, group.Title, model.TypeGroup, group.Tags) {
			out = append(out, group.Group)
		}
	}
	return out
}

// matchesQuery evaluates the AND-of-clauses query forms the deployer and the
// cloners issue. Owner clauses always match; everything in the fake belongs
// to one user.
func matchesQuery(query, title, itemType string, tags []string) bool {
	for _, part := range strings.Split(query, " AND ") {
		key, value, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return false
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "owner":
		case "title":
			if title != value {
				return false
			}
		case "type":
			if !strings.EqualFold(itemType, value) {
				return false
			}
		case "tags":
			for _, want := range strings.Split(value, ",") {
				if !hasTag(tags, strings.TrimSpace(want)) {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (p *testPortal) reply(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		p.t.Fatalf("encoding reply: %v", err)
	}
}

// snapshot helpers used by assertions.

func (p *testPortal) itemCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *testPortal) groupCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.groups)
}

func (p *testPortal) itemByTitle(title string) *storedItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.items {
		if item.Title == title {
			return item
		}
	}
	return nil
}

func (p *testPortal) soleGroup() *storedGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, group := range p.groups {
		return group
	}
	return nil
}

func (p *testPortal) deleteAllItems() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = map[string]*storedItem{}
}

func (p *testPortal) creationOrder() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.created...)
}
