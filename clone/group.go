// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"fmt"

	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"go.uber.org/zap"
)

// maxTitleProbes bounds the unique-title search. The portal forbids two
// groups with the same title for one owner, so in practice the probe ends
// quickly; the cap turns a pathological portal state into an error instead of
// an endless search loop.
const maxTitleProbes = 100

// CloneGroup creates a copy of a source group in the target portal. The clone
// is private, invitation-only and view-only, carries source-<id> (and
// sourcefolder-<folderID>) tags for reuse detection, and gets a unique title
// derived from the original's by numeric suffix.
func (c *Cloners) CloneGroup(ctx context.Context, original model.Group, folder model.Folder) (model.Group, error) {
	tags := append(append([]string(nil), original.Tags...), model.SourceTagPrefix+original.ID)
	if folder.ID != "" {
		tags = append(tags, model.SourceFolderTagPrefix+folder.ID)
	}

	title, err := c.uniqueGroupTitle(ctx, original.Title)
	if err != nil {
		return model.Group{}, failure(fmt.Sprintf("failed to create group '%s'", original.Title), nil, err)
	}

	props := portal.GroupProperties{
		Title:            title,
		Description:      original.Description,
		Snippet:          original.Snippet,
		Tags:             tags,
		Access:           model.AccessPrivate,
		SortField:        original.SortField,
		SortOrder:        original.SortOrder,
		IsInvitationOnly: true,
		IsViewOnly:       true,
	}
	if c.Thumbnails != nil {
		props.ThumbnailURL = c.Thumbnails.GroupThumbnailURL(original)
	}

	created, err := c.Target.CreateGroup(ctx, props)
	if err != nil {
		return model.Group{}, failure(fmt.Sprintf("failed to create group '%s'", original.Title), nil, err)
	}

	c.logger().Debug("cloned group", zap.String("source", original.ID), zap.String("target", created.ID), zap.String("title", created.Title))
	return created, nil
}

// uniqueGroupTitle probes for a title no group of this owner already uses,
// appending an incrementing numeric suffix.
func (c *Cloners) uniqueGroupTitle(ctx context.Context, base string) (string, error) {
	title := base
	for i := 2; i <= maxTitleProbes+1; i++ {
		query := fmt.Sprintf("owner:%s AND title:\"%s\"", c.Target.Username(), title)
		groups, err := c.Target.SearchGroups(ctx, query)
		if err != nil {
			return "", err
		}
		if len(groups) == 0 {
			return title, nil
		}
		title = fmt.Sprintf("%s %d", base, i)
	}
	return "", fmt.Errorf("no unique group title found for '%s' after %d attempts", base, maxTitleProbes)
}
