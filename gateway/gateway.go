// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Errors that can be returned by this package. Since some of these errors are
// returned wrapped, it is safest to use errors.Is() to check for them.
var (
	ErrURLEmpty    = errors.New("request url is required")
	ErrBadMethod   = errors.New("request method must be GET or POST")
	ErrPortalError = errors.New("portal responded with an error payload")
)

var (
	errNewRequestFailure  = errors.New("failed creating an HTTP request")
	errDoRequestFailure   = errors.New("http client failed while sending request")
	errReadingBodyFailure = errors.New("failed while reading http response body")
	errGzipDecodeFailure  = errors.New("failed decoding gzip response body")
	errJSONUnmarshal      = errors.New("failed unmarshaling JSON response payload")
)

const (
	errWrappedFmt = "%w: %s"

	defaultRetryWait = 2 * time.Second
)

// Config contains config data for the gateway used to issue portal REST
// requests.
type Config struct {
	// HTTPClient sends the requests.
	// (Optional) Defaults to http.DefaultClient.
	HTTPClient httpaux.Client

	// Referer is sent as the Referer header on every request. Signed portal
	// tokens are bound to it.
	Referer string

	// RetryWait is the fixed delay between retry attempts.
	// (Optional) Defaults to 2s.
	RetryWait time.Duration

	// Logger to be used by the gateway.
	// (Optional) By default a no op logger will be used.
	Logger *zap.Logger
}

// Gateway issues form-encoded REST calls against portal and admin endpoints,
// decoding gzip-compressed JSON responses. A response whose decoded body
// carries an "error" key is a failure; callers may opt into a bounded number
// of retries with a fixed delay between attempts.
type Gateway struct {
	client    httpaux.Client
	referer   string
	retryWait time.Duration
	logger    *zap.Logger
	measures  *Measures
}

// New creates a Gateway. The measures may be nil, in which case no metrics
// are recorded.
func New(config Config, measures *Measures) *Gateway {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.RetryWait <= 0 {
		config.RetryWait = defaultRetryWait
	}
	if config.Logger == nil {
		config.Logger = sallust.Default()
	}

	return &Gateway{
		client:    config.HTTPClient,
		referer:   config.Referer,
		retryWait: config.RetryWait,
		logger:    config.Logger,
		measures:  measures,
	}
}

// Request sends a single form-encoded request and returns the decoded JSON
// body. When the body contains an "error" key the request is considered
// failed; it is retried up to retries times before the error payload is
// surfaced. Transport failures are not retried.
func (g *Gateway) Request(ctx context.Context, rawURL string, params map[string]string, method string, retries int) (map[string]any, error) {
	if rawURL == "" {
		return nil, ErrURLEmpty
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("%w: %q", ErrBadMethod, method)
	}

	for {
		body, err := g.send(ctx, rawURL, params, method)
		if err != nil {
			g.count(FailureOutcome)
			return nil, err
		}

		payload, ok := body["error"]
		if !ok {
			g.count(SuccessOutcome)
			return body, nil
		}

		if retries <= 0 {
			g.count(FailureOutcome)
			g.logger.Error("portal request failed",
				zap.String("url", rawURL), zap.Any("error", payload))
			return nil, &PortalError{URL: rawURL, Payload: payload}
		}

		retries--
		g.count(RetryOutcome)
		g.logger.Warn("portal request returned an error, retrying",
			zap.String("url", rawURL), zap.Int("retriesLeft", retries))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.retryWait):
		}
	}
}

func (g *Gateway) send(ctx context.Context, rawURL string, params map[string]string, method string) (map[string]any, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	encoded := form.Encode()

	var (
		r   *http.Request
		err error
	)
	if method == http.MethodGet {
		r, err = http.NewRequestWithContext(ctx, method, rawURL+"?"+encoded, nil)
	} else {
		r, err = http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(encoded))
		if r != nil {
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		}
	}
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, errNewRequestFailure, err.Error())
	}

	r.Header.Set("Accept-Encoding", "gzip")
	if g.referer != "" {
		r.Header.Set("Referer", g.referer)
	}

	resp, err := g.client.Do(r)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, errDoRequestFailure, err.Error())
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf(errWrappedFmt, errGzipDecodeFailure, err.Error())
		}
		defer gz.Close()
		reader = gz
	}

	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, errReadingBodyFailure, err.Error())
	}

	var body map[string]any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		return nil, fmt.Errorf(errWrappedFmt, errJSONUnmarshal, err.Error())
	}
	return body, nil
}

// Download fetches a raw (non-JSON) resource such as an item thumbnail.
func (g *Gateway) Download(ctx context.Context, rawURL string, params map[string]string) ([]byte, error) {
	if rawURL == "" {
		return nil, ErrURLEmpty
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+form.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, errNewRequestFailure, err.Error())
	}
	if g.referer != "" {
		r.Header.Set("Referer", g.referer)
	}

	resp, err := g.client.Do(r)
	if err != nil {
		g.count(FailureOutcome)
		return nil, fmt.Errorf(errWrappedFmt, errDoRequestFailure, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.count(FailureOutcome)
		return nil, fmt.Errorf(errWrappedFmt, errReadingBodyFailure, err.Error())
	}
	g.count(SuccessOutcome)
	return body, nil
}

func (g *Gateway) count(outcome string) {
	if g.measures == nil || g.measures.Requests == nil {
		return
	}
	g.measures.Requests.With(map[string]string{OutcomeLabel: outcome}).Add(1)
}

// PortalError carries the portal's JSON error payload after retries are
// exhausted.
type PortalError struct {
	URL     string
	Payload any
}

func (e *PortalError) Error() string {
	detail, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Sprintf("%s: %s", ErrPortalError.Error(), e.URL)
	}
	return fmt.Sprintf("%s: %s: %s", ErrPortalError.Error(), e.URL, detail)
}

func (e *PortalError) Unwrap() error {
	return ErrPortalError
}
