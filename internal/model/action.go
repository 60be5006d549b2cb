package model

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies the user operation an Action describes.
type ActionType string

const (
	ActionGet         ActionType = "get"
	ActionGetChildren ActionType = "get-children"
	ActionUpdate      ActionType = "update"
	ActionCreate      ActionType = "create"
	ActionDelete      ActionType = "delete"
	ActionCopy        ActionType = "copy"
	ActionMove        ActionType = "move"
	ActionDownload    ActionType = "download"
)

// Geolocation is the stored result of a network-address lookup.
// A nil *Geolocation on an Action means the lookup was attempted and
// produced nothing; the lookup is never retried after insert.
type Geolocation struct {
	Country   string  `json:"country,omitempty"`
	Region    string  `json:"region,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Action is one immutable audit record of a user operation against an item.
// ID and CreatedAt are assigned by the store at insert time and no field is
// mutated afterwards. ItemID and ItemPath are nil when the target was deleted
// as part of the triggering operation; the target identity then survives only
// inside Extra.
type Action struct {
	ID          uuid.UUID      `json:"id"`
	MemberID    uuid.UUID      `json:"memberId"`
	ItemID      *uuid.UUID     `json:"itemId"`
	ItemPath    *string        `json:"itemPath"`
	MemberType  string         `json:"memberType"`
	ItemType    string         `json:"itemType"`
	ActionType  ActionType     `json:"actionType"`
	View        string         `json:"view"`
	Geolocation *Geolocation   `json:"geolocation"`
	Extra       map[string]any `json:"extra"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ActionFilters narrows a sampling query.
type ActionFilters struct {
	// SampleSize is the clamped maximum number of actions to return.
	SampleSize int
	// View restricts results to a single front-end view when non-empty.
	View string
}
