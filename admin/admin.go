// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

// Package admin issues hosted feature service admin REST calls: definition
// additions during service cloning, and single-call field metadata edits.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"emperror.dev/emperror"
	"github.com/gisops/solclone/gateway"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

var (
	ErrNotHostedService = errors.New("input url is not a hosted feature service url")
	ErrNilGateway       = errors.New("gateway cannot be nil")
)

const servicesMarker = "/rest/services"

// ServiceAdminURL derives the admin endpoint of a hosted service or layer
// URL by replacing the /rest/services path segment with /rest/admin/services.
func ServiceAdminURL(serviceURL string) (string, error) {
	idx := strings.Index(serviceURL, servicesMarker)
	if idx < 0 {
		return "", ErrNotHostedService
	}
	return serviceURL[:idx] + "/rest/admin/services" + serviceURL[idx+len(servicesMarker):], nil
}

// Config contains config data for the admin client.
type Config struct {
	// Token is the signed token forwarded on every admin call. Admin
	// endpoints reject anonymous requests.
	Token string

	// Logger to be used by the client.
	// (Optional) By default a no op logger will be used.
	Logger *zap.Logger
}

// Client performs admin REST operations against hosted services the
// signed-in user owns.
type Client struct {
	gw     *gateway.Gateway
	token  string
	logger *zap.Logger
}

func New(config Config, gw *gateway.Gateway) (*Client, error) {
	if gw == nil {
		return nil, ErrNilGateway
	}
	if config.Logger == nil {
		config.Logger = sallust.Default()
	}
	return &Client{gw: gw, token: config.Token, logger: config.Logger}, nil
}

// AddToDefinition submits an addToDefinition call against the service's admin
// endpoint, or against one layer's endpoint when subPath carries a layer id.
func (c *Client) AddToDefinition(ctx context.Context, serviceURL, subPath string, definition any) error {
	return c.call(ctx, serviceURL, subPath, "addToDefinition", definition)
}

// UpdateDefinition submits an updateDefinition call against a layer or table
// admin endpoint.
func (c *Client) UpdateDefinition(ctx context.Context, layerURL string, definition any) error {
	return c.call(ctx, layerURL, "", "updateDefinition", definition)
}

// DeleteFromDefinition removes parts of a layer or table definition.
func (c *Client) DeleteFromDefinition(ctx context.Context, layerURL string, definition any) error {
	return c.call(ctx, layerURL, "", "deleteFromDefinition", definition)
}

func (c *Client) call(ctx context.Context, serviceURL, subPath, operation string, definition any) error {
	adminURL, err := ServiceAdminURL(serviceURL)
	if err != nil {
		return err
	}
	if subPath != "" {
		adminURL += "/" + subPath
	}
	adminURL += "/" + operation

	encoded, err := json.Marshal(definition)
	if err != nil {
		return emperror.WrapWith(err, "failed encoding admin definition", "operation", operation)
	}

	params := map[string]string{
		"f":       "json",
		"async":   "false",
		operation: string(encoded),
	}
	if c.token != "" {
		params["token"] = c.token
	}

	c.logger.Debug("admin call", zap.String("url", adminURL), zap.String("operation", operation))
	_, err = c.gw.Request(ctx, adminURL, params, http.MethodPost, 0)
	return err
}
