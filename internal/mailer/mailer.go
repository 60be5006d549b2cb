// Package mailer delivers the export download link to the requesting member.
// Delivery failures are logged and swallowed by callers: mail is best-effort
// and never fails an export.
package mailer

import "context"

// Mailer sends the archive download link once an export completes.
type Mailer interface {
	SendExportEmail(ctx context.Context, to, itemName, downloadLink string, expiresInDays int) error
}
