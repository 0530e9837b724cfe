// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package solution

import (
	"context"
	"fmt"

	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
)

// Discovery tag convention: deployable entry points carry both tags in the
// source organization.
const (
	SolutionTag       = "one.click.solution"
	SolutionTagPrefix = "solution."
)

// EntrySource locates a solution's entry points and expands them into full
// definitions. A live portal resolves the graph by walking item payloads; a
// local bundle replays the definition recorded at download time.
type EntrySource interface {
	Source

	// FindEntry returns the named map or app of the given solution, or
	// found=false when the solution does not offer it.
	FindEntry(ctx context.Context, solutionName, name string) (item model.Item, found bool, err error)

	// Definition returns the transitive closure of items and groups the
	// entry needs.
	Definition(ctx context.Context, entry model.Item) (*model.SolutionDefinition, error)
}

// Live adapts a portal client into an EntrySource backed by tag search and
// graph resolution.
type Live struct {
	*portal.Client
}

func (l Live) FindEntry(ctx context.Context, solutionName, name string) (model.Item, bool, error) {
	query := fmt.Sprintf("tags:\"%s,%s%s\" AND title:\"%s\"", SolutionTag, SolutionTagPrefix, solutionName, name)
	items, err := l.Search(ctx, query)
	if err != nil {
		return model.Item{}, false, err
	}
	// Portal title search is fuzzy; require an exact match.
	for _, item := range items {
		if item.Title == name {
			return item, true, nil
		}
	}
	return model.Item{}, false, nil
}

func (l Live) Definition(ctx context.Context, entry model.Item) (*model.SolutionDefinition, error) {
	return Resolve(ctx, l.Client, entry)
}
