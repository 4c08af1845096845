// Package notify implements the bounded notification queue behind the
// bell widget.
package notify

import (
	"fmt"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
)

// Cap is the maximum number of queued notifications; the oldest entry is
// evicted once the queue is full.
const Cap = 10

// maxBadge is the largest unread count rendered literally; anything above
// it displays as "9+".
const maxBadge = 9

// Queue is an order-preserving, bounded collection of notifications.
// The zero value is ready to use.
type Queue struct {
	items []api.Notification
}

// Seed replaces the queue contents from an initial fetch, keeping at most
// the newest Cap entries and preserving order.
func (q *Queue) Seed(items []api.Notification) {
	if len(items) > Cap {
		items = items[len(items)-Cap:]
	}
	q.items = make([]api.Notification, len(items))
	copy(q.items, items)
}

// Push appends a notification, evicting the oldest entry when the queue
// is at capacity. Unrecognized categories are still queued: an entry with
// no usable message gets a generic "Unknown notification type" fallback
// rather than being dropped. A server-supplied message always wins over
// the fallback, even for an unrecognized category.
func (q *Queue) Push(n api.Notification) {
	if n.Message == "" && n.Category() == api.CategoryUnknown {
		n.Message = fmt.Sprintf("Unknown notification type: %s", n.Type)
	}
	q.items = append(q.items, n)
	if len(q.items) > Cap {
		q.items = q.items[len(q.items)-Cap:]
	}
}

// MarkRead flips the read flag for a matching identity. The flag never
// reverts; a missing identity is a no-op.
func (q *Queue) MarkRead(id string) {
	for i := range q.items {
		if q.items[i].ID == id {
			q.items[i].Read = true
			return
		}
	}
}

// UnreadCount returns the number of unread entries.
func (q *Queue) UnreadCount() int {
	count := 0
	for _, n := range q.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// Badge renders the unread count for display: the literal number up to 9,
// then "9+".
func (q *Queue) Badge() string {
	count := q.UnreadCount()
	if count > maxBadge {
		return "9+"
	}
	return fmt.Sprintf("%d", count)
}

// Len returns the number of queued entries.
func (q *Queue) Len() int { return len(q.items) }

// Items returns a copy of the queued notifications, oldest first.
func (q *Queue) Items() []api.Notification {
	out := make([]api.Notification, len(q.items))
	copy(out, q.items)
	return out
}
