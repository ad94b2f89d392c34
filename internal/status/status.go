// Package status builds the user-facing summary of pending and recently
// synced writes.
package status

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kimhsiao/splitledger/client/internal/models"
)

// Section titles.
const (
	TitlePending = "Pending Uploads"
	TitleSynced  = "Recently Synced"
)

// EmptyMessage is shown when there is nothing to report.
const EmptyMessage = "No pending or recent activity."

// Entry is one line of the report.
type Entry struct {
	ID       string          `json:"id"`
	Endpoint models.Endpoint `json:"endpoint"`
	Label    string          `json:"label"`
	Pending  bool            `json:"pending"`
	Time     time.Time       `json:"time"`
	When     string          `json:"when"`
}

// Section groups entries under a title.
type Section struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Report is the sync status shown to the user. Sections with no entries are
// omitted.
type Report struct {
	Sections    []Section `json:"sections"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Empty reports whether there is neither pending nor synced activity.
func (r Report) Empty() bool {
	return len(r.Sections) == 0
}

// Label describes a payload as "Expense: Dinner" or "Payment: ₹50".
func Label(endpoint models.Endpoint, payload []byte) string {
	description, amount := models.Summary(payload)
	if description == "" {
		description = "₹" + humanize.Commaf(amount)
	}
	return endpoint.Label() + ": " + description
}

// Build assembles the report from the queue (FIFO) and history (most recent
// first) as of now.
func Build(queue []models.QueueItem, history []models.SyncHistoryEntry, now time.Time) Report {
	report := Report{Sections: []Section{}, GeneratedAt: now}

	if len(queue) > 0 {
		section := Section{Title: TitlePending}
		for _, item := range queue {
			section.Entries = append(section.Entries, Entry{
				ID:       item.ID,
				Endpoint: item.Endpoint,
				Label:    Label(item.Endpoint, item.Payload),
				Pending:  true,
				Time:     item.Timestamp,
				When:     "Queued " + humanize.RelTime(item.Timestamp, now, "ago", "from now"),
			})
		}
		report.Sections = append(report.Sections, section)
	}

	if len(history) > 0 {
		section := Section{Title: TitleSynced}
		for _, entry := range history {
			section.Entries = append(section.Entries, Entry{
				ID:       entry.ID,
				Endpoint: entry.Endpoint,
				Label:    Label(entry.Endpoint, entry.Payload),
				Time:     entry.SyncedAt,
				When:     "Synced " + humanize.RelTime(entry.SyncedAt, now, "ago", "from now"),
			})
		}
		report.Sections = append(report.Sections, section)
	}

	return report
}

// Render writes the report as plain text.
func (r Report) Render(w io.Writer) error {
	if r.Empty() {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}
	for i, section := range r.Sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s (%d)\n", section.Title, len(section.Entries)); err != nil {
			return err
		}
		for _, e := range section.Entries {
			if _, err := fmt.Fprintf(w, "  %-36s  %s  [%s]\n", e.ID, e.Label, e.When); err != nil {
				return err
			}
		}
	}
	return nil
}
