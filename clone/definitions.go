// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package clone

import (
	"context"
	"errors"
	"net/http"

	"github.com/gisops/solclone/gateway"
	"github.com/gisops/solclone/model"
)

var ErrServiceURLEmpty = errors.New("source service url is required")

// LiveDefinitions fetches feature service definitions straight from the
// source service's REST endpoint.
type LiveDefinitions struct {
	GW    *gateway.Gateway
	Token string
}

func (d *LiveDefinitions) ServiceDefinition(ctx context.Context, _ model.Item, serviceURL string) (map[string]any, error) {
	return d.fetch(ctx, serviceURL)
}

func (d *LiveDefinitions) LayersDefinition(ctx context.Context, _ model.Item, serviceURL string) (map[string]any, error) {
	return d.fetch(ctx, serviceURL+"/layers")
}

func (d *LiveDefinitions) fetch(ctx context.Context, url string) (map[string]any, error) {
	if url == "" || url == "/layers" {
		return nil, ErrServiceURLEmpty
	}
	params := map[string]string{"f": "json"}
	if d.Token != "" {
		params["token"] = d.Token
	}
	return d.GW.Request(ctx, url, params, http.MethodGet, 0)
}
