// Package event implements the process-wide synchronous event bus the
// dashboard widgets reconcile through. Topics form a closed enum and each
// topic carries exactly one payload type; there is no string-keyed lookup
// and no ambient global bus; the Bus is constructed once and injected.
package event

import (
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
)

// Topic identifies an event channel.
type Topic int

const (
	TopicSessionCreated Topic = iota
	TopicSessionUpdated
	TopicSessionDeleted
	TopicSessionsInvalidate
	TopicBuddiesInvalidate
	TopicCalendarOpenSchedule
	TopicPartnerAccepted
	TopicPartnerRejected
	TopicNotification
)

var topicNames = map[Topic]string{
	TopicSessionCreated:       "session:created",
	TopicSessionUpdated:       "session:updated",
	TopicSessionDeleted:       "session:deleted",
	TopicSessionsInvalidate:   "sessions:invalidate",
	TopicBuddiesInvalidate:    "buddies:invalidate",
	TopicCalendarOpenSchedule: "calendar:openSchedule",
	TopicPartnerAccepted:      "partner_accepted",
	TopicPartnerRejected:      "partner_rejected",
	TopicNotification:         "notification",
}

func (t Topic) String() string {
	if s, ok := topicNames[t]; ok {
		return s
	}
	return "unknown"
}

// Event is the sealed payload interface. Payloads are values; publishing
// hands each subscriber its own copy, never a shared reference.
type Event interface {
	Topic() Topic
}

// SessionCreated announces a new session to dedup-merge into caches.
type SessionCreated struct {
	Session api.Session
}

func (SessionCreated) Topic() Topic { return TopicSessionCreated }

// SessionUpdated carries a partial session to shallow-merge by identity.
type SessionUpdated struct {
	Patch api.SessionPatch
}

func (SessionUpdated) Topic() Topic { return TopicSessionUpdated }

// SessionDeleted removes the session with the given identity.
type SessionDeleted struct {
	ID string
}

func (SessionDeleted) Topic() Topic { return TopicSessionDeleted }

// SessionsInvalidate asks session widgets to discard their cache and
// re-fetch a full snapshot.
type SessionsInvalidate struct{}

func (SessionsInvalidate) Topic() Topic { return TopicSessionsInvalidate }

// BuddiesInvalidate asks partner widgets to re-fetch their snapshot.
type BuddiesInvalidate struct{}

func (BuddiesInvalidate) Topic() Topic { return TopicBuddiesInvalidate }

// CalendarOpenSchedule opens the session-creation surface, defaulting the
// date to today.
type CalendarOpenSchedule struct{}

func (CalendarOpenSchedule) Topic() Topic { return TopicCalendarOpenSchedule }

// PartnerAccepted reports an accepted partner request.
type PartnerAccepted struct {
	AcceptedBy string
}

func (PartnerAccepted) Topic() Topic { return TopicPartnerAccepted }

// PartnerRejected reports a rejected partner request.
type PartnerRejected struct {
	RejectedBy string
}

func (PartnerRejected) Topic() Topic { return TopicPartnerRejected }

// Notification pushes an entry into the notification queue.
type Notification struct {
	Notification api.Notification
}

func (Notification) Topic() Topic { return TopicNotification }
