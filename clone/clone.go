// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

// Package clone creates target-portal copies of groups, feature services,
// web maps and applications from their source definitions, rewriting
// cross-references through the run's mapping tables.
package clone

import (
	"context"
	"errors"
	"fmt"

	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// ErrUnmappedReference reports a source id encountered during swizzling that
// has no mapping table entry. It indicates the dependency was never created,
// which is a graph resolution bug; the orchestrator fails the entry rather
// than guessing.
var ErrUnmappedReference = errors.New("reference has no mapping table entry")

// Kind tags what a rollback reference points at.
type Kind int

const (
	KindItem Kind = iota
	KindGroup
)

// Created identifies one object created in the target portal, with enough
// context to delete it again.
type Created struct {
	Kind     Kind
	ID       string
	Title    string
	FolderID string
}

// CreateError is returned by every cloner on failure. Partial references
// whatever object was created before the failure, if any, so the orchestrator
// can include it in rollback.
type CreateError struct {
	Message string
	Partial *Created
	Err     error
}

func (e *CreateError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// ServiceDefinitionSource provides a feature service's JSON definitions: the
// service-level definition and the combined layers+tables definition. Live
// deployments fetch them from the service URL; bundle deployments read them
// from featureserver.json.
type ServiceDefinitionSource interface {
	ServiceDefinition(ctx context.Context, item model.Item, serviceURL string) (map[string]any, error)
	LayersDefinition(ctx context.Context, item model.Item, serviceURL string) (map[string]any, error)
}

// ThumbnailSource yields fetchable thumbnail URLs for source objects, or ""
// when unavailable (bundle sources have no reachable thumbnail URL).
type ThumbnailSource interface {
	ThumbnailURL(itemID, thumbnail string) string
	GroupThumbnailURL(group model.Group) string
}

// AdminClient issues admin REST calls against hosted services.
type AdminClient interface {
	AddToDefinition(ctx context.Context, serviceURL, subPath string, definition any) error
}

// Cloners bundles the collaborators every cloner needs.
type Cloners struct {
	Target     *portal.Client
	Defs       ServiceDefinitionSource
	Thumbnails ThumbnailSource
	Admin      AdminClient
	Logger     *zap.Logger
}

func (c *Cloners) logger() *zap.Logger {
	if c.Logger == nil {
		return sallust.Default()
	}
	return c.Logger
}

// itemProperties copies the update allowlist from a source item, appends the
// source marker tag, and attaches the source thumbnail when reachable.
func (c *Cloners) itemProperties(original model.Item) portal.ItemProperties {
	props := portal.PropertiesFrom(original)
	props.Tags = append(props.Tags, original.SourceTag())
	if c.Thumbnails != nil {
		props.ThumbnailURL = c.Thumbnails.ThumbnailURL(original.ID, original.Thumbnail)
	}
	return props
}

// shareable reports whether a sharing policy requires a share call at all.
func shareable(s model.Sharing) bool {
	return len(s.Groups) > 0 || s.Access == model.AccessOrg || s.Access == model.AccessEveryone
}

func failure(message string, partial *Created, err error) *CreateError {
	return &CreateError{Message: message, Partial: partial, Err: err}
}
