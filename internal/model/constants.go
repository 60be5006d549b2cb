package model

import "time"

const (
	AppServiceName = "action-analytics"
	CurrentVersion = "1.0.0"
)

// Sampling bounds for analytics queries. A requested size outside the
// [MinSampleSize, MaxSampleSize] range is clamped; an absent or non-integer
// value falls back to DefaultSampleSize.
const (
	MinSampleSize     = 0
	DefaultSampleSize = 5000
	MaxSampleSize     = 10000
)

const (
	// ViewBuilder is the platform's primary authoring front end. Lifecycle
	// create/delete events are always attributed to it.
	ViewBuilder = "builder"
	// ViewUnknown is the synthetic view assigned when the request origin
	// matches no configured host.
	ViewUnknown = "unknown"
)

const (
	ZipMimetype = "application/zip"

	// DefaultExportCooldown is how long a previous export receipt suppresses
	// regeneration for the same member and item.
	DefaultExportCooldown = 24 * time.Hour

	// DefaultExportLinkTTL bounds the validity of presigned download links.
	DefaultExportLinkTTL = 7 * 24 * time.Hour
)

// Membership permission levels, lowest to highest.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionAdmin = "admin"
)
