// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package solution

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// ServiceDefinitions fetches a feature service's definition documents so the
// download path can record them for offline cloning.
type ServiceDefinitions interface {
	ServiceDefinition(ctx context.Context, item model.Item, serviceURL string) (map[string]any, error)
	LayersDefinition(ctx context.Context, item model.Item, serviceURL string) (map[string]any, error)
}

// Downloader writes a live solution into a local bundle directory that
// OpenBundle can replay later without portal access to the source.
type Downloader struct {
	Source *portal.Client
	Defs   ServiceDefinitions
	Logger *zap.Logger
}

// Download resolves entry points of the named solution and writes the bundle
// under dir. With no names every tagged entry is taken; otherwise only the
// named ones. An existing bundle at dir is extended: definitions merge and
// already-downloaded items are overwritten with fresh copies.
func (d *Downloader) Download(ctx context.Context, solutionName, dir string, names ...string) error {
	logger := d.Logger
	if logger == nil {
		logger = sallust.Default()
	}

	query := fmt.Sprintf("tags:\"%s,%s%s\"", SolutionTag, SolutionTagPrefix, solutionName)
	entries, err := d.Source.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("failed searching solution %s: %w", solutionName, err)
	}
	if len(names) > 0 {
		selected := entries[:0]
		for _, entry := range entries {
			for _, name := range names {
				if entry.Title == name {
					selected = append(selected, entry)
					break
				}
			}
		}
		entries = selected
	}
	if len(entries) == 0 {
		return fmt.Errorf("solution %s has no tagged maps or apps to download", solutionName)
	}

	defs, err := loadOrInitDefinitions(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		logger.Info("downloading entry", zap.String("title", entry.Title), zap.String("id", entry.ID))

		def, err := Resolve(ctx, d.Source, entry)
		if err != nil {
			return fmt.Errorf("failed resolving %s: %w", entry.Title, err)
		}

		itemIDs := make([]string, 0, len(def.Items))
		for _, si := range def.Items {
			if err := d.writeItem(ctx, dir, si); err != nil {
				return err
			}
			itemIDs = append(itemIDs, si.Item.ID)
		}
		for _, groupID := range def.Groups {
			if err := d.writeGroup(ctx, dir, groupID); err != nil {
				return err
			}
		}

		defs.Solutions[solutionName] = appendUnique(defs.Solutions[solutionName], entry.Title)
		defs.MapsAndApps[entry.Title] = entryDef{Items: itemIDs, Groups: def.Groups}
	}

	return writeJSONFile(filepath.Join(dir, definitionsFileName), defs)
}

func (d *Downloader) writeItem(ctx context.Context, dir string, si model.SolutionItem) error {
	infoDir := filepath.Join(dir, itemsDirName, si.Item.ID, esriInfoDirName)
	if err := os.MkdirAll(infoDir, 0o755); err != nil {
		return fmt.Errorf("failed creating bundle directory for %s: %w", si.Item.ID, err)
	}

	if err := writeJSONFile(filepath.Join(infoDir, itemInfoFileName), si.Item); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(infoDir, sharingFileName), si.Sharing); err != nil {
		return err
	}

	data := si.Data
	if data == nil && strings.EqualFold(si.Item.Type, model.TypeFeatureService) {
		// Services resolve without payloads; fetch the text data now so the
		// offline clone matches a live one.
		if fetched, err := d.Source.GetItemData(ctx, si.Item.ID); err == nil {
			data = fetched
		}
	}
	if data != nil {
		path := filepath.Join(dir, itemsDirName, si.Item.ID, si.Item.ID+".json")
		if err := writeJSONFile(path, data); err != nil {
			return err
		}
	}

	if strings.EqualFold(si.Item.Type, model.TypeFeatureService) {
		if err := d.writeFeatureServer(ctx, infoDir, si.Item); err != nil {
			return err
		}
	}

	return d.writeThumbnail(ctx, infoDir, si.Item)
}

func (d *Downloader) writeFeatureServer(ctx context.Context, infoDir string, item model.Item) error {
	service, err := d.Defs.ServiceDefinition(ctx, item, item.URL)
	if err != nil {
		return fmt.Errorf("failed fetching service definition for %s: %w", item.Title, err)
	}
	layers, err := d.Defs.LayersDefinition(ctx, item, item.URL)
	if err != nil {
		return fmt.Errorf("failed fetching layers definition for %s: %w", item.Title, err)
	}
	doc := featureServerDoc{Service: service, Layers: layers}
	return writeJSONFile(filepath.Join(infoDir, featureServerName), doc)
}

// writeThumbnail is best effort; a missing or unreadable thumbnail never
// fails the download.
func (d *Downloader) writeThumbnail(ctx context.Context, infoDir string, item model.Item) error {
	if item.Thumbnail == "" {
		return nil
	}
	raw, err := d.Source.DownloadThumbnail(ctx, item.ID, item.Thumbnail)
	if err != nil || len(raw) == 0 {
		return nil
	}
	thumbDir := filepath.Join(infoDir, thumbnailDirName)
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return nil
	}
	name := filepath.Base(strings.ReplaceAll(item.Thumbnail, "\\", "/"))
	return os.WriteFile(filepath.Join(thumbDir, name), raw, 0o644)
}

func (d *Downloader) writeGroup(ctx context.Context, dir, groupID string) error {
	group, err := d.Source.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed fetching group %s: %w", groupID, err)
	}
	groupDir := filepath.Join(dir, groupsDirName, groupID)
	if err := os.MkdirAll(groupDir, 0o755); err != nil {
		return fmt.Errorf("failed creating bundle directory for group %s: %w", groupID, err)
	}
	return writeJSONFile(filepath.Join(groupDir, groupInfoFileName), group)
}

func loadOrInitDefinitions(dir string) (definitions, error) {
	raw, err := os.ReadFile(filepath.Join(dir, definitionsFileName))
	if os.IsNotExist(err) {
		return newDefinitions(), nil
	}
	if err != nil {
		return definitions{}, fmt.Errorf("failed reading bundle definitions: %w", err)
	}
	defs := newDefinitions()
	if err := json.Unmarshal(raw, &defs); err != nil {
		return definitions{}, fmt.Errorf("failed decoding bundle definitions: %w", err)
	}
	return defs, nil
}

func writeJSONFile(path string, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, raw, 0o644)
}
