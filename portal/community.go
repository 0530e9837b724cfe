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

// GroupProperties are the group fields written when creating a group.
type GroupProperties struct {
	Title            string
	Description      string
	Snippet          string
	Tags             []string
	Access           string
	SortField        string
	SortOrder        string
	IsInvitationOnly bool
	IsViewOnly       bool
	ThumbnailURL     string
}

func (p GroupProperties) params() map[string]string {
	out := map[string]string{
		"title":            p.Title,
		"tags":             strings.Join(p.Tags, ","),
		"access":           p.Access,
		"isInvitationOnly": strconv.FormatBool(p.IsInvitationOnly),
		"isViewOnly":       strconv.FormatBool(p.IsViewOnly),
	}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("description", p.Description)
	set("snippet", p.Snippet)
	set("sortField", p.SortField)
	set("sortOrder", p.SortOrder)
	set("thumbnailurl", p.ThumbnailURL)
	return out
}

// SearchGroups runs a group search scoped to the signed-in user's
// organization.
func (c *Client) SearchGroups(ctx context.Context, query string) ([]model.Group, error) {
	body, err := c.get(ctx, c.restBase+"/community/groups", map[string]string{
		"q":   query,
		"num": strconv.Itoa(searchPageSize),
	})
	if err != nil {
		return nil, err
	}

	var page struct {
		Results []model.Group `json:"results"`
	}
	if err := decode(body, &page); err != nil {
		return nil, emperror.WrapWith(err, "group search failed", "query", query)
	}
	return page.Results, nil
}

// GetGroup fetches a single group.
func (c *Client) GetGroup(ctx context.Context, id string) (model.Group, error) {
	if id == "" {
		return model.Group{}, ErrGroupIDEmpty
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/community/groups/%s", c.restBase, id), nil)
	if err != nil {
		return model.Group{}, err
	}

	var group model.Group
	if err := decode(body, &group); err != nil {
		return model.Group{}, emperror.WrapWith(err, "failed fetching group", "id", id)
	}
	return group, nil
}

// CreateGroup creates a new group and returns it.
func (c *Client) CreateGroup(ctx context.Context, props GroupProperties) (model.Group, error) {
	body, err := c.post(ctx, c.restBase+"/community/createGroup", props.params())
	if err != nil {
		return model.Group{}, err
	}

	var resp struct {
		Group model.Group `json:"group"`
	}
	if err := decode(body, &resp); err != nil {
		return model.Group{}, emperror.WrapWith(err, "failed creating group", "title", props.Title)
	}
	if resp.Group.ID == "" {
		return model.Group{}, emperror.WrapWith(errDecodeFailure, "createGroup returned no group", "title", props.Title)
	}
	return resp.Group, nil
}

// DeleteGroup removes a group. Used by rollback.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	if id == "" {
		return ErrGroupIDEmpty
	}
	body, err := c.post(ctx, fmt.Sprintf("%s/community/groups/%s/delete", c.restBase, id), nil)
	if err != nil {
		return err
	}
	if !cast.ToBool(body["success"]) {
		return emperror.WrapWith(errDecodeFailure, "group delete not acknowledged", "id", id)
	}
	return nil
}

// GroupThumbnailURL returns the fetchable URL of a group's thumbnail, or ""
// when the group has none.
func (c *Client) GroupThumbnailURL(group model.Group) string {
	if group.Thumbnail == "" {
		return ""
	}
	url := fmt.Sprintf("%s/community/groups/%s/info/%s", c.restBase, group.ID, group.Thumbnail)
	if c.token != "" {
		url += "?token=" + c.token
	}
	return url
}
