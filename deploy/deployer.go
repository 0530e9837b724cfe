// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

// Package deploy drives the end-to-end cloning sequence for each named map
// or app of a solution: resolve the dependency graph, create groups, then
// services, then maps, then apps, and roll back everything created for an
// entry when any part of it fails.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gisops/solclone/clone"
	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/gisops/solclone/solution"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

const separator = "------------------------"

var ErrNilCollaborator = errors.New("source, target, cloners and host are all required")

// Request is one deployment run.
type Request struct {
	// Solution is the solution name; entry points carry solution.<name> tags.
	Solution string

	// Names are the map/app titles to clone. Processed strictly in order;
	// names not found in the source are skipped silently.
	Names []string

	// Extent is the default extent for new maps and services.
	Extent model.Extent

	// Folder is the title of the destination folder in the target user's
	// content. Created when missing.
	Folder string
}

// Deployer owns one deployment run's collaborators and mapping tables.
type Deployer struct {
	source  solution.EntrySource
	target  *portal.Client
	cloners *clone.Cloners
	host    Host
	logger  *zap.Logger

	groups   *model.IDMapping
	services *model.ServiceMapping
	webmaps  *model.IDMapping
}

// New creates a Deployer. The logger may be nil.
func New(source solution.EntrySource, target *portal.Client, cloners *clone.Cloners, host Host, logger *zap.Logger) (*Deployer, error) {
	if source == nil || target == nil || cloners == nil || host == nil {
		return nil, ErrNilCollaborator
	}
	if logger == nil {
		logger = sallust.Default()
	}
	return &Deployer{
		source:   source,
		target:   target,
		cloners:  cloners,
		host:     host,
		logger:   logger,
		groups:   model.NewIDMapping(),
		services: model.NewServiceMapping(),
		webmaps:  model.NewIDMapping(),
	}, nil
}

// Deploy clones every requested entry into the destination folder. A failure
// in one entry rolls back that entry's objects and moves on to the next; the
// mapping tables persist across entries so shared dependencies are created
// once and reused.
func (d *Deployer) Deploy(ctx context.Context, req Request) error {
	folder, err := d.ensureFolder(ctx, req.Folder)
	if err != nil {
		return err
	}

	for _, name := range req.Names {
		d.deployEntry(ctx, name, req, folder)
	}
	return nil
}

// deployEntry processes one named map or app. All failures are converted to
// host messages plus rollback; nothing escapes.
func (d *Deployer) deployEntry(ctx context.Context, name string, req Request, folder model.Folder) {
	item, found, err := d.source.FindEntry(ctx, req.Solution, name)
	if err != nil {
		d.failEntry(name, nil, err)
		return
	}
	if !found {
		// Not an error: the caller may request names from another solution.
		d.logger.Debug("entry point not found in source", zap.String("name", name))
		return
	}

	existing, err := d.findExistingItem(ctx, item.ID, folder, item.Type)
	if err != nil {
		d.failEntry(name, nil, err)
		return
	}
	if existing != nil {
		d.host.Log(LevelInfo, fmt.Sprintf("'%s' already exists in your %s folder", item.Title, folder.Title))
		d.host.Log(LevelInfo, separator)
		return
	}

	def, err := d.source.Definition(ctx, item)
	if err != nil {
		d.failEntry(name, nil, err)
		return
	}

	d.host.Log(LevelInfo, "Deploying "+name)
	progress := &progress{host: d.host, total: len(def.Groups) + len(def.Items)}
	created := &createdList{}

	if err := d.deployGroups(ctx, def, folder, created, progress); err != nil {
		d.failEntry(name, created, err)
		return
	}
	if err := d.remapSharing(def); err != nil {
		d.failEntry(name, created, err)
		return
	}
	if err := d.deployServices(ctx, def, req.Extent, folder, created, progress); err != nil {
		d.failEntry(name, created, err)
		return
	}
	if err := d.deployWebMaps(ctx, def, req.Extent, folder, created, progress); err != nil {
		d.failEntry(name, created, err)
		return
	}
	if err := d.deployApps(ctx, def, folder, created, progress); err != nil {
		d.failEntry(name, created, err)
		return
	}

	d.host.Log(LevelInfo, "Successfully added "+name)
	d.host.Log(LevelInfo, separator)
}

func (d *Deployer) deployGroups(ctx context.Context, def *model.SolutionDefinition, folder model.Folder, created *createdList, progress *progress) error {
	for _, groupID := range def.Groups {
		if d.groups.Contains(groupID) {
			progress.step()
			continue
		}

		original, err := d.source.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}

		target, err := d.findExistingGroup(ctx, groupID, folder)
		if err != nil {
			return err
		}
		if target == nil {
			newGroup, err := d.cloners.CloneGroup(ctx, original, folder)
			if err != nil {
				return err
			}
			created.add(clone.Created{Kind: clone.KindGroup, ID: newGroup.ID, Title: newGroup.Title})
			d.host.Log(LevelInfo, fmt.Sprintf("Created group '%s'", newGroup.Title))
			target = &newGroup
		} else {
			d.host.Log(LevelInfo, fmt.Sprintf("Existing group '%s' found", target.Title))
		}
		d.groups.Add(groupID, target.ID)
		progress.step()
	}
	return nil
}

// remapSharing rewrites every discovered item's sharing groups through the
// group mapping. Must run strictly after group creation and strictly before
// any dependent object is created. A group with no mapping entry means
// resolution missed a dependency; that fails the entry.
func (d *Deployer) remapSharing(def *model.SolutionDefinition) error {
	for i := range def.Items {
		groups := def.Items[i].Sharing.Groups
		for j, src := range groups {
			mapped, ok := d.groups.Lookup(src)
			if !ok {
				return fmt.Errorf("%w: sharing group %s", clone.ErrUnmappedReference, src)
			}
			groups[j] = mapped
		}
	}
	return nil
}

func (d *Deployer) deployServices(ctx context.Context, def *model.SolutionDefinition, extent model.Extent, folder model.Folder, created *createdList, progress *progress) error {
	for _, si := range def.ItemsOfType(model.TypeFeatureService) {
		if d.services.Contains(si.Item.ID) {
			progress.step()
			continue
		}

		existing, err := d.findExistingItem(ctx, si.Item.ID, folder, model.TypeFeatureService)
		if err != nil {
			return err
		}

		var target model.Item
		if existing == nil {
			data := si.Data
			if data == nil {
				// Best effort: most services carry no text payload.
				if fetched, err := d.source.GetItemData(ctx, si.Item.ID); err == nil {
					data = fetched
				}
			}
			target, err = d.cloners.CloneService(ctx, si.Item, si.Item.URL, data, extent, folder, si.Sharing)
			if err != nil {
				return err
			}
			created.add(clone.Created{Kind: clone.KindItem, ID: target.ID, Title: target.Title, FolderID: folder.ID})
			d.host.Log(LevelInfo, fmt.Sprintf("Created service '%s'", target.Title))
		} else {
			target = *existing
			d.host.Log(LevelInfo, fmt.Sprintf("Existing service '%s' found in %s", target.Title, folder.Title))
		}

		d.services.Add(model.ServiceMapEntry{
			SourceID:  si.Item.ID,
			SourceURL: si.Item.URL,
			TargetID:  target.ID,
			TargetURL: target.URL,
		})
		progress.step()
	}
	return nil
}

func (d *Deployer) deployWebMaps(ctx context.Context, def *model.SolutionDefinition, extent model.Extent, folder model.Folder, created *createdList, progress *progress) error {
	for _, si := range def.ItemsOfType(model.TypeWebMap) {
		if d.webmaps.Contains(si.Item.ID) {
			progress.step()
			continue
		}

		existing, err := d.findExistingItem(ctx, si.Item.ID, folder, model.TypeWebMap)
		if err != nil {
			return err
		}

		var target model.Item
		if existing == nil {
			target, err = d.cloners.CloneWebMap(ctx, si.Item, si.Data, d.services, extent, folder, si.Sharing)
			if err != nil {
				return err
			}
			created.add(clone.Created{Kind: clone.KindItem, ID: target.ID, Title: target.Title, FolderID: folder.ID})
			d.host.Log(LevelInfo, fmt.Sprintf("Created map '%s'", target.Title))
		} else {
			target = *existing
			d.host.Log(LevelInfo, fmt.Sprintf("Existing map '%s' found in %s", target.Title, folder.Title))
		}

		d.webmaps.Add(si.Item.ID, target.ID)
		progress.step()
	}
	return nil
}

func (d *Deployer) deployApps(ctx context.Context, def *model.SolutionDefinition, folder model.Folder, created *createdList, progress *progress) error {
	for _, si := range def.ItemsOfType(model.TypeWebApp, model.TypeOperationView) {
		existing, err := d.findExistingItem(ctx, si.Item.ID, folder, si.Item.Type)
		if err != nil {
			return err
		}
		if existing != nil {
			d.host.Log(LevelInfo, fmt.Sprintf("Existing application '%s' found in %s", existing.Title, folder.Title))
			progress.step()
			continue
		}

		target, err := d.cloners.CloneApp(ctx, si.Item, si.Data, d.services, d.webmaps, d.groups, folder, si.Sharing)
		if err != nil {
			return err
		}
		created.add(clone.Created{Kind: clone.KindItem, ID: target.ID, Title: target.Title, FolderID: folder.ID})
		d.host.Log(LevelInfo, fmt.Sprintf("Created application '%s'", target.Title))
		progress.step()
	}
	return nil
}

// failEntry reports a failed entry and deletes everything created for it.
func (d *Deployer) failEntry(name string, created *createdList, err error) {
	d.host.Log(LevelError, err.Error())

	var createErr *clone.CreateError
	if errors.As(err, &createErr) && createErr.Partial != nil && created != nil {
		created.add(*createErr.Partial)
	}

	if created != nil {
		d.rollback(created)
	}

	d.host.Log(LevelError, "Failed to add "+name)
	d.host.Log(LevelInfo, separator)
}

// rollback deletes, best effort, every object created for the failed entry.
// Deletion failures are logged and do not stop the loop. Uses a background
// context so cleanup still runs when the run's context caused the failure.
func (d *Deployer) rollback(created *createdList) {
	ctx := context.Background()
	for _, obj := range created.objects {
		var err error
		switch obj.Kind {
		case clone.KindGroup:
			err = d.target.DeleteGroup(ctx, obj.ID)
		default:
			err = d.target.DeleteItem(ctx, obj.ID, obj.FolderID)
		}
		if err != nil {
			d.host.Log(LevelWarning, fmt.Sprintf("Failed to delete %s: %s", obj.Title, err.Error()))
			continue
		}
		d.host.Log(LevelInfo, "Deleted "+obj.Title)
	}
}

// findExistingItem looks for a clone of the source item in the destination
// folder via its source-<id> tag.
func (d *Deployer) findExistingItem(ctx context.Context, sourceID string, folder model.Folder, itemType string) (*model.Item, error) {
	query := fmt.Sprintf("owner:%s AND tags:\"%s%s\" AND type:%s", d.target.Username(), model.SourceTagPrefix, sourceID, itemType)
	items, err := d.target.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Folder == folder.ID && strings.EqualFold(items[i].Type, itemType) {
			return &items[i], nil
		}
	}
	return nil, nil
}

// findExistingGroup looks for a group cloned for the same source group and
// destination folder.
func (d *Deployer) findExistingGroup(ctx context.Context, sourceID string, folder model.Folder) (*model.Group, error) {
	query := fmt.Sprintf("owner:%s AND tags:\"%s%s,%s%s\"", d.target.Username(),
		model.SourceTagPrefix, sourceID, model.SourceFolderTagPrefix, folder.ID)
	groups, err := d.target.SearchGroups(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

// ensureFolder resolves the destination folder by title, creating it when
// absent.
func (d *Deployer) ensureFolder(ctx context.Context, title string) (model.Folder, error) {
	folders, err := d.target.GetFolders(ctx)
	if err != nil {
		return model.Folder{}, err
	}
	for _, f := range folders {
		if f.Title == title {
			return f, nil
		}
	}
	return d.target.CreateFolder(ctx, title)
}

type createdList struct {
	objects []clone.Created
}

func (l *createdList) add(obj clone.Created) {
	l.objects = append(l.objects, obj)
}

type progress struct {
	host    Host
	current int
	total   int
}

func (p *progress) step() {
	p.current++
	p.host.SetProgress(p.current, p.total)
}
