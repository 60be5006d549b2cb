package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExportRequest is the persisted receipt of a completed archive generation.
// It is immutable once created; the most recent receipt for a (member, item)
// pair rate-limits regeneration.
type ExportRequest struct {
	ID        uuid.UUID `json:"id"`
	MemberID  uuid.UUID `json:"memberId"`
	ItemID    uuid.UUID `json:"itemId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExportTask is the job pushed to the queue. It must be JSON-serializable
// and carry only by-value inputs: it crosses the request boundary and is
// consumed after the triggering response has been sent.
type ExportTask struct {
	TaskID      string    `json:"task_id"`
	MemberID    uuid.UUID `json:"member_id"`
	ItemID      uuid.UUID `json:"item_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewExportTask builds a queue job for one member's export of one item.
func NewExportTask(memberID, itemID uuid.UUID, now time.Time) ExportTask {
	return ExportTask{
		TaskID:      ExportTaskKey(memberID, itemID),
		MemberID:    memberID,
		ItemID:      itemID,
		RequestedAt: now,
	}
}

// ExportTaskKey identifies an in-flight export for deduplication.
func ExportTaskKey(memberID, itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", memberID, itemID)
}

// ArchiveTimestamp renders an archive generation time as the path- and
// filename-safe token shared by the object key, the zip name and the
// per-view file names. Receipts round-trip through it, so it must stay
// second-precision and UTC.
func ArchiveTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15-04-05Z")
}

// ArchiveObjectPath is the object-storage key of an item's archive generated
// at the given time.
func ArchiveObjectPath(itemID uuid.UUID, t time.Time) string {
	return fmt.Sprintf("actions/%s/%s.zip", itemID, ArchiveTimestamp(t))
}

// ArchiveName is the zip file name presented to the requesting member.
func ArchiveName(itemName string, t time.Time) string {
	return fmt.Sprintf("%s_%s.zip", itemName, ArchiveTimestamp(t))
}

// ActionFileName names the per-view JSON dump inside an archive.
func ActionFileName(view string, t time.Time) string {
	return fmt.Sprintf("actions_%s_%s.json", view, ArchiveTimestamp(t))
}
