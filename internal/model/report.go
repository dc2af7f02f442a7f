package model

import (
	"encoding/json"
	"time"
)

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportOpen     ReportStatus = "open"
	ReportResolved ReportStatus = "resolved"
)

// ReportReasons are the accepted reason codes.
var ReportReasons = map[string]bool{
	"not_ai":          true,
	"gore":            true,
	"sexual_violence": true,
	"harassment":      true,
	"doxxing":         true,
	"illegal":         true,
	"other":           true,
}

// Report flags one media item. The asset/kind/caption snapshot survives deletion of the item.
type Report struct {
	ID             string       `json:"id"`
	CreatedAt      time.Time    `json:"createdAt"`
	SessionID      *string      `json:"sessionId,omitempty"`
	MediaID        *string      `json:"mediaId,omitempty"`
	Reason         string       `json:"reason"`
	Details        *string      `json:"details,omitempty"`
	MediaAssetURL  *string      `json:"mediaAssetUrl,omitempty"`
	MediaKind      *string      `json:"mediaKind,omitempty"`
	MediaCaption   *string      `json:"mediaCaption,omitempty"`
	Status         ReportStatus `json:"status"`
	ResolvedAt     *time.Time   `json:"resolvedAt,omitempty"`
	ResolvedBy     *string      `json:"resolvedBy,omitempty"`
	ResolutionNote *string      `json:"resolutionNote,omitempty"`
}

// ReportWithMedia is a report joined with the current state of its item, if it still exists.
type ReportWithMedia struct {
	Report
	Media *ReportedMedia `json:"media"`
}

// ReportedMedia is the live moderation view of a reported item.
type ReportedMedia struct {
	ID       string  `json:"id"`
	AssetURL string  `json:"assetUrl"`
	Kind     Kind    `json:"kind"`
	Caption  *string `json:"caption,omitempty"`
	Origin   *string `json:"origin,omitempty"`
	Status   Status  `json:"status"`
	Hidden   bool    `json:"isHidden"`
}

// ReportRequest is the API request body for flagging an item.
type ReportRequest struct {
	SessionID string `json:"sessionId"`
	MediaID   string `json:"mediaId"`
	Reason    string `json:"reason"`
	Details   string `json:"details,omitempty"`
}

// ResolveRequest is the API request body for resolving a report.
type ResolveRequest struct {
	ResolutionNote *string            `json:"resolutionNote,omitempty"`
	MediaUpdate    *MediaUpdateRequest `json:"mediaUpdate,omitempty"`
}

// MediaUpdateRequest carries raw column updates keyed by column name.
type MediaUpdateRequest struct {
	MediaID string                     `json:"mediaId"`
	Updates map[string]json.RawMessage `json:"updates"`
}

// ReportFilter narrows the admin report listing.
type ReportFilter struct {
	Status ReportStatus
	Offset int
	Limit  int
}

// ResolveResult is the API response after resolving a report.
type ResolveResult struct {
	Report       Report `json:"report"`
	MediaUpdated bool   `json:"mediaUpdated"`
	MediaMissing bool   `json:"mediaMissing"`
}
