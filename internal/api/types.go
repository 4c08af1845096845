// Package api provides the REST and WebSocket clients for the Study Buddy
// backend. Types mirror the backend wire protocol.
package api

import (
	"encoding/json"
	"strings"
	"time"
)

// SessionType classifies a study session.
type SessionType int

const (
	TypeStudy SessionType = iota
	TypeReview
	TypeProject
	TypeExamPrep
	TypeDiscussion

	// TypeCount bounds the enum, for cycling pickers.
	TypeCount
)

var sessionTypeNames = map[SessionType]string{
	TypeStudy:      "study",
	TypeReview:     "review",
	TypeProject:    "project",
	TypeExamPrep:   "exam_prep",
	TypeDiscussion: "discussion",
}

var sessionTypeFromName = map[string]SessionType{
	"study":      TypeStudy,
	"review":     TypeReview,
	"project":    TypeProject,
	"exam_prep":  TypeExamPrep,
	"discussion": TypeDiscussion,
}

func (t SessionType) String() string {
	if s, ok := sessionTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

func (t SessionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *SessionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := sessionTypeFromName[s]; ok {
		*t = v
	}
	return nil
}

// SessionStatus tracks a session's lifecycle.
type SessionStatus int

const (
	StatusUpcoming SessionStatus = iota
	StatusOngoing
	StatusCompleted
	StatusCancelled
)

var sessionStatusNames = map[SessionStatus]string{
	StatusUpcoming:  "upcoming",
	StatusOngoing:   "ongoing",
	StatusCompleted: "completed",
	StatusCancelled: "cancelled",
}

var sessionStatusFromName = map[string]SessionStatus{
	"upcoming":  StatusUpcoming,
	"ongoing":   StatusOngoing,
	"completed": StatusCompleted,
	"cancelled": StatusCancelled,
}

func (s SessionStatus) String() string {
	if n, ok := sessionStatusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s SessionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SessionStatus) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, ok := sessionStatusFromName[n]; ok {
		*s = v
	}
	return nil
}

// Session is a study session. Date is the session's local calendar date as
// a YYYY-MM-DD string; StartTime and EndTime are local wall-clock HH:MM.
// The date is stored as a string key on purpose: assigning it to a calendar
// cell is a string comparison, never a timestamp conversion.
type Session struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Course          string        `json:"course,omitempty"`
	Date            string        `json:"date"`
	StartTime       string        `json:"startTime"`
	EndTime         string        `json:"endTime"`
	Location        string        `json:"location,omitempty"`
	Type            SessionType   `json:"type"`
	Participants    int           `json:"participants"`
	MaxParticipants int           `json:"maxParticipants,omitempty"` // 0 = unlimited
	Status          SessionStatus `json:"status"`
	IsCreator       bool          `json:"isCreator,omitempty"`
	IsAttending     bool          `json:"isAttending,omitempty"`
	Provisional     bool          `json:"provisional,omitempty"` // local-only, not yet confirmed by the backend
}

// Key returns the session identity for dedup merging.
func (s Session) Key() string { return s.ID }

// Full reports whether the session has reached its participant cap.
func (s Session) Full() bool {
	return s.MaxParticipants > 0 && s.Participants >= s.MaxParticipants
}

// SessionPatch is a partial session update. Only non-nil fields are applied;
// ID is required so the patch can find its target.
type SessionPatch struct {
	ID              string         `json:"id"`
	Title           *string        `json:"title,omitempty"`
	Course          *string        `json:"course,omitempty"`
	Date            *string        `json:"date,omitempty"`
	StartTime       *string        `json:"startTime,omitempty"`
	EndTime         *string        `json:"endTime,omitempty"`
	Location        *string        `json:"location,omitempty"`
	Type            *SessionType   `json:"type,omitempty"`
	Participants    *int           `json:"participants,omitempty"`
	MaxParticipants *int           `json:"maxParticipants,omitempty"`
	Status          *SessionStatus `json:"status,omitempty"`
	IsAttending     *bool          `json:"isAttending,omitempty"`
}

// Apply shallow-merges the set fields of the patch into s.
func (p SessionPatch) Apply(s *Session) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Course != nil {
		s.Course = *p.Course
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.EndTime = *p.EndTime
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Participants != nil {
		s.Participants = *p.Participants
	}
	if p.MaxParticipants != nil {
		s.MaxParticipants = *p.MaxParticipants
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.IsAttending != nil {
		s.IsAttending = *p.IsAttending
	}
}

// SessionDraft is the user input for creating a session.
type SessionDraft struct {
	Title           string      `json:"title"`
	Course          string      `json:"course,omitempty"`
	Date            string      `json:"date"`
	StartTime       string      `json:"startTime"`
	EndTime         string      `json:"endTime"`
	Location        string      `json:"location,omitempty"`
	Type            SessionType `json:"type"`
	MaxParticipants int         `json:"maxParticipants,omitempty"`
}

// SessionFilter narrows a sessions fetch. Zero value means no filter.
type SessionFilter struct {
	From   string `json:"from,omitempty"` // YYYY-MM-DD inclusive
	To     string `json:"to,omitempty"`
	Course string `json:"course,omitempty"`
}

// ConnectionStatus tracks a partner relationship.
type ConnectionStatus int

const (
	ConnectionNone ConnectionStatus = iota
	ConnectionPending
	ConnectionAccepted
)

var connectionStatusNames = map[ConnectionStatus]string{
	ConnectionNone:     "none",
	ConnectionPending:  "pending",
	ConnectionAccepted: "accepted",
}

var connectionStatusFromName = map[string]ConnectionStatus{
	"none":     ConnectionNone,
	"pending":  ConnectionPending,
	"accepted": ConnectionAccepted,
}

func (c ConnectionStatus) String() string {
	if n, ok := connectionStatusNames[c]; ok {
		return n
	}
	return "unknown"
}

func (c ConnectionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ConnectionStatus) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, ok := connectionStatusFromName[n]; ok {
		*c = v
	}
	return nil
}

// Partner is a potential or connected study partner.
type Partner struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Course             string           `json:"course,omitempty"`
	University         string           `json:"university,omitempty"`
	CompatibilityScore int              `json:"compatibilityScore"`
	SharedCourses      []string         `json:"sharedCourses,omitempty"`
	ConnectionStatus   ConnectionStatus `json:"connectionStatus"`
	IsPendingSent      bool             `json:"isPendingSent,omitempty"` // outgoing vs incoming pending
	RequestID          string           `json:"requestId,omitempty"`     // set while a request is pending
}

// Key returns the partner identity for dedup merging.
func (p Partner) Key() string { return p.ID }

// Suggestible reports whether the partner belongs in the suggestions view.
func (p Partner) Suggestible() bool {
	return p.ConnectionStatus != ConnectionAccepted && len(p.SharedCourses) > 0
}

// Category classifies a notification for display.
type Category int

const (
	CategoryUnknown Category = iota
	CategorySuccess
	CategoryWarning
	CategoryInfo
)

var categoryNames = map[Category]string{
	CategoryUnknown: "unknown",
	CategorySuccess: "success",
	CategoryWarning: "warning",
	CategoryInfo:    "info",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "unknown"
}

// CategoryOf derives a display category from an inbound notification type
// string. Unrecognized types map to CategoryUnknown; the caller still
// queues them (dropping information is worse than an ugly fallback).
func CategoryOf(notificationType string) Category {
	switch {
	case notificationType == "partner_accepted",
		notificationType == "session_confirmed",
		strings.HasSuffix(notificationType, "_success"):
		return CategorySuccess
	case notificationType == "session_cancelled",
		notificationType == "partner_rejected",
		strings.HasSuffix(notificationType, "_warning"):
		return CategoryWarning
	case notificationType == "session_reminder",
		notificationType == "partner_request",
		notificationType == "session_updated",
		strings.HasSuffix(notificationType, "_info"):
		return CategoryInfo
	default:
		return CategoryUnknown
	}
}

// Notification is an alert surfaced to the user.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key returns the notification identity for dedup merging.
func (n Notification) Key() string { return n.ID }

// Category derives the display category from the notification type.
func (n Notification) Category() Category { return CategoryOf(n.Type) }

// Note is an entry on the shared notes board. Body is markdown.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
	Provisional bool      `json:"provisional,omitempty"`
}

// Key returns the note identity for dedup merging.
func (n Note) Key() string { return n.ID }

// NoteDraft is the user input for creating a note.
type NoteDraft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
