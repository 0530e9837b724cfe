// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package portal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"emperror.dev/emperror"
	"github.com/gisops/solclone/model"
	"github.com/spf13/cast"
)

// ItemProperties are the item fields written when adding or updating an item.
// This is the fixed allowlist copied from a source item during cloning.
type ItemProperties struct {
	Title             string
	Type              string
	Description       string
	Snippet           string
	Culture           string
	AccessInformation string
	LicenseInfo       string
	Tags              []string
	TypeKeywords      []string
	Name              string
	Extent            string
	Text              string
	URL               string
	ThumbnailURL      string
}

// PropertiesFrom copies the update allowlist from a source item.
func PropertiesFrom(item model.Item) ItemProperties {
	return ItemProperties{
		Title:             item.Title,
		Type:              item.Type,
		Description:       item.Description,
		Snippet:           item.Snippet,
		Culture:           item.Culture,
		AccessInformation: item.AccessInformation,
		LicenseInfo:       item.LicenseInfo,
		Tags:              append([]string(nil), item.Tags...),
		TypeKeywords:      append([]string(nil), item.TypeKeywords...),
	}
}

// params renders the properties in the portal's form encoding. Tags and type
// keywords are comma-joined; zero-valued fields are omitted.
func (p ItemProperties) params() map[string]string {
	out := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("title", p.Title)
	set("type", p.Type)
	set("description", p.Description)
	set("snippet", p.Snippet)
	set("culture", p.Culture)
	set("accessInformation", p.AccessInformation)
	set("licenseInfo", p.LicenseInfo)
	set("tags", strings.Join(p.Tags, ","))
	set("typeKeywords", strings.Join(p.TypeKeywords, ","))
	set("name", p.Name)
	set("extent", p.Extent)
	set("text", p.Text)
	set("url", p.URL)
	set("thumbnailurl", p.ThumbnailURL)
	return out
}

// Search runs an item search and returns one page of results.
func (c *Client) Search(ctx context.Context, query string) ([]model.Item, error) {
	body, err := c.get(ctx, c.restBase+"/search", map[string]string{
		"q":   query,
		"num": strconv.Itoa(searchPageSize),
	})
	if err != nil {
		return nil, err
	}

	var page struct {
		Results []model.Item `json:"results"`
	}
	if err := decode(body, &page); err != nil {
		return nil, emperror.WrapWith(err, "item search failed", "query", query)
	}
	return page.Results, nil
}

// GetItem fetches a single item's descriptor.
func (c *Client) GetItem(ctx context.Context, id string) (model.Item, error) {
	if id == "" {
		return model.Item{}, ErrItemIDEmpty
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/content/items/%s", c.restBase, id), nil)
	if err != nil {
		return model.Item{}, err
	}

	var item model.Item
	if err := decode(body, &item); err != nil {
		return model.Item{}, emperror.WrapWith(err, "failed fetching item", "id", id)
	}
	return item, nil
}

// GetItemData fetches an item's JSON payload (web map or app definition).
func (c *Client) GetItemData(ctx context.Context, id string) (map[string]any, error) {
	if id == "" {
		return nil, ErrItemIDEmpty
	}
	return c.get(ctx, fmt.Sprintf("%s/content/items/%s/data", c.restBase, id), nil)
}

// GetFolders lists the signed-in user's folders.
func (c *Client) GetFolders(ctx context.Context) ([]model.Folder, error) {
	body, err := c.get(ctx, c.userContentURL(""), nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Folders []model.Folder `json:"folders"`
	}
	if err := decode(body, &page); err != nil {
		return nil, emperror.Wrap(err, "failed listing folders")
	}
	return page.Folders, nil
}

// CreateFolder creates a folder in the user's content.
func (c *Client) CreateFolder(ctx context.Context, title string) (model.Folder, error) {
	body, err := c.post(ctx, c.userContentURL("")+"/createFolder", map[string]string{"title": title})
	if err != nil {
		return model.Folder{}, err
	}

	var resp struct {
		Folder model.Folder `json:"folder"`
	}
	if err := decode(body, &resp); err != nil {
		return model.Folder{}, emperror.WrapWith(err, "failed creating folder", "title", title)
	}
	return resp.Folder, nil
}

// AddItem adds a new item to the user's content, optionally inside a folder,
// and returns the created item.
func (c *Client) AddItem(ctx context.Context, props ItemProperties, folderID string) (model.Item, error) {
	body, err := c.post(ctx, c.userContentURL(folderID)+"/addItem", props.params())
	if err != nil {
		return model.Item{}, err
	}

	id := cast.ToString(body["id"])
	if id == "" {
		return model.Item{}, emperror.WrapWith(errDecodeFailure, "addItem returned no id", "title", props.Title)
	}
	return c.GetItem(ctx, id)
}

// CreateService submits createService with the given create parameters and
// returns the new service item's id and service URL.
func (c *Client) CreateService(ctx context.Context, createParameters string, folderID string) (itemID, serviceURL string, err error) {
	body, err := c.post(ctx, c.userContentURL(folderID)+"/createService", map[string]string{
		"createParameters": createParameters,
		"outputType":       "featureService",
	})
	if err != nil {
		return "", "", err
	}

	itemID = cast.ToString(body["itemId"])
	serviceURL = cast.ToString(body["serviceurl"])
	if itemID == "" {
		return "", "", emperror.Wrap(errDecodeFailure, "createService returned no itemId")
	}
	return itemID, serviceURL, nil
}

// UpdateItem updates an existing item's properties.
func (c *Client) UpdateItem(ctx context.Context, id, folderID string, props ItemProperties) error {
	if id == "" {
		return ErrItemIDEmpty
	}
	_, err := c.post(ctx, fmt.Sprintf("%s/items/%s/update", c.userContentURL(folderID), id), props.params())
	return err
}

// ShareItem applies a sharing policy to an item.
func (c *Client) ShareItem(ctx context.Context, id, folderID string, sharing model.Sharing) error {
	if id == "" {
		return ErrItemIDEmpty
	}
	_, err := c.post(ctx, fmt.Sprintf("%s/items/%s/share", c.userContentURL(folderID), id), map[string]string{
		"everyone": strconv.FormatBool(strings.EqualFold(sharing.Access, model.AccessEveryone)),
		"org":      strconv.FormatBool(strings.EqualFold(sharing.Access, model.AccessOrg)),
		"groups":   strings.Join(sharing.Groups, ","),
	})
	return err
}

// DeleteItem removes an item. Used by rollback; failures are reported but the
// rollback loop continues.
func (c *Client) DeleteItem(ctx context.Context, id, folderID string) error {
	if id == "" {
		return ErrItemIDEmpty
	}
	_, err := c.post(ctx, fmt.Sprintf("%s/items/%s/delete", c.userContentURL(folderID), id), nil)
	return err
}

// ThumbnailURL returns the fetchable URL of an item's thumbnail, or "" when
// the item has none.
func (c *Client) ThumbnailURL(itemID, thumbnail string) string {
	if thumbnail == "" {
		return ""
	}
	url := fmt.Sprintf("%s/content/items/%s/info/%s", c.restBase, itemID, thumbnail)
	if c.token != "" {
		url += "?token=" + c.token
	}
	return url
}

// DownloadThumbnail fetches an item's thumbnail bytes for bundle export.
func (c *Client) DownloadThumbnail(ctx context.Context, itemID, thumbnail string) ([]byte, error) {
	if itemID == "" {
		return nil, ErrItemIDEmpty
	}
	return c.gw.Download(ctx, fmt.Sprintf("%s/content/items/%s/info/%s", c.restBase, itemID, thumbnail), c.params(nil))
}

const searchPageSize = 100
