// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gisops/solclone/gateway"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Errors that can be returned by this package. Since some of these errors are
// returned wrapped, it is safest to use errors.Is() to check for them.
var (
	ErrAddressEmpty  = errors.New("portal address is required")
	ErrUsernameEmpty = errors.New("portal username is required")
	ErrItemIDEmpty   = errors.New("item ID is required")
	ErrGroupIDEmpty  = errors.New("group ID is required")
	ErrNilGateway    = errors.New("gateway cannot be nil")
)

var errDecodeFailure = errors.New("failed decoding portal response")

const restAPIPath = "sharing/rest"

// Config contains config data for a portal client.
type Config struct {
	// Address is the portal URL (i.e. https://myorg.maps.arcgis.com/).
	Address string

	// Username of the signed-in user. Content paths are scoped to it.
	Username string

	// Token is the signed token forwarded on every request.
	// (Optional) Anonymous access is used when empty; reads against a public
	// portal work without it.
	Token string

	// Logger to be used by the client.
	// (Optional) By default a no op logger will be used.
	Logger *zap.Logger
}

// Client talks to one portal's sharing REST API on behalf of one user.
type Client struct {
	gw       *gateway.Gateway
	portal   string
	restBase string
	username string
	token    string
	logger   *zap.Logger
}

// New creates a portal Client over the given gateway.
func New(config Config, gw *gateway.Gateway) (*Client, error) {
	if config.Address == "" {
		return nil, ErrAddressEmpty
	}
	if gw == nil {
		return nil, ErrNilGateway
	}
	if config.Logger == nil {
		config.Logger = sallust.Default()
	}

	portalURL := strings.TrimRight(config.Address, "/") + "/"
	return &Client{
		gw:       gw,
		portal:   portalURL,
		restBase: portalURL + restAPIPath,
		username: config.Username,
		token:    config.Token,
		logger:   config.Logger,
	}, nil
}

// PortalURL returns the portal base URL with a trailing slash, the form
// embedded into rewritten application payloads.
func (c *Client) PortalURL() string {
	return c.portal
}

func (c *Client) Username() string {
	return c.username
}

// userContentURL returns the content path for the signed-in user, optionally
// scoped to a folder.
func (c *Client) userContentURL(folderID string) string {
	url := fmt.Sprintf("%s/content/users/%s", c.restBase, c.username)
	if folderID != "" {
		url += "/" + folderID
	}
	return url
}

func (c *Client) params(extra map[string]string) map[string]string {
	p := map[string]string{"f": "json"}
	if c.token != "" {
		p["token"] = c.token
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func (c *Client) get(ctx context.Context, url string, extra map[string]string) (map[string]any, error) {
	return c.gw.Request(ctx, url, c.params(extra), http.MethodGet, 0)
}

func (c *Client) post(ctx context.Context, url string, extra map[string]string) (map[string]any, error) {
	return c.gw.Request(ctx, url, c.params(extra), http.MethodPost, 0)
}

// decode reinterprets a loosely-typed JSON body as the given struct.
func decode(body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %s", errDecodeFailure, err.Error())
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s", errDecodeFailure, err.Error())
	}
	return nil
}
