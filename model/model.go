// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package model

import "strings"

// Item types understood by the cloning engine. Any other type is carried
// through opaquely.
const (
	TypeGroup          = "Group"
	TypeFeatureService = "Feature Service"
	TypeWebMap         = "Web Map"
	TypeWebApp         = "Web Mapping Application"
	TypeOperationView  = "Operation View"
)

// Access levels for item and group sharing.
const (
	AccessPrivate  = "private"
	AccessOrg      = "org"
	AccessEveryone = "everyone"
)

// SourceTagPrefix marks a cloned item with the id of the item it was cloned
// from, so later runs can find and reuse the clone.
const (
	SourceTagPrefix       = "source-"
	SourceFolderTagPrefix = "sourcefolder-"
)

// Item is a portal content object. Data holds the item's JSON payload
// (web map or application definition) and is preserved verbatim for item
// types the engine does not recognize.
type Item struct {
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	Title             string         `json:"title"`
	Name              string         `json:"name,omitempty"`
	URL               string         `json:"url,omitempty"`
	Owner             string         `json:"owner,omitempty"`
	Folder            string         `json:"ownerFolder,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	TypeKeywords      []string       `json:"typeKeywords,omitempty"`
	Description       string         `json:"description,omitempty"`
	Snippet           string         `json:"snippet,omitempty"`
	Culture           string         `json:"culture,omitempty"`
	AccessInformation string         `json:"accessInformation,omitempty"`
	LicenseInfo       string         `json:"licenseInfo,omitempty"`
	Thumbnail         string         `json:"thumbnail,omitempty"`
	Data              map[string]any `json:"-"`
}

// SourceTag returns the tag a clone of this item carries.
func (i Item) SourceTag() string {
	return SourceTagPrefix + i.ID
}

// HasTag reports whether the item carries the given tag.
func (i Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasTypeKeyword reports whether any type keyword contains the given marker.
// Matching is a substring test because portal keywords carry qualifiers
// (e.g. "Web AppBuilder for ArcGIS").
func (i Item) HasTypeKeyword(marker string) bool {
	for _, kw := range i.TypeKeywords {
		if strings.Contains(kw, marker) {
			return true
		}
	}
	return false
}

// Group is a portal group.
type Group struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Snippet          string   `json:"snippet,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Access           string   `json:"access,omitempty"`
	SortField        string   `json:"sortField,omitempty"`
	SortOrder        string   `json:"sortOrder,omitempty"`
	IsInvitationOnly bool     `json:"isInvitationOnly,omitempty"`
	IsViewOnly       bool     `json:"isViewOnly,omitempty"`
	Thumbnail        string   `json:"thumbnail,omitempty"`
}

// Folder is a folder in a user's portal content.
type Folder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Sharing is the sharing policy attached to a discovered item: its access
// level plus the ids of the groups it is shared with.
type Sharing struct {
	Access string   `json:"access"`
	Groups []string `json:"groups,omitempty"`
}
