// Package mutate centralizes the optimistic-mutation protocol: a user
// action flips the local entity immediately, the remote call runs in the
// background, and a definitive rejection silently restores the snapshot.
// Modelling this once as an explicit state machine keeps the rollback
// logic out of the widgets.
package mutate

import (
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/clock"
)

// Action identifies a mutable operation.
type Action int

const (
	ActionAttend Action = iota
	ActionLeave
	ActionCancel
	ActionCreate
	ActionNoteCreate
	ActionNoteDelete
)

var actionNames = map[Action]string{
	ActionAttend:     "attend",
	ActionLeave:      "leave",
	ActionCancel:     "cancel",
	ActionCreate:     "create",
	ActionNoteCreate: "note_create",
	ActionNoteDelete: "note_delete",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// State is a mutation's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateOptimistic
	StateConfirmed
	StateRolledBack
	StateAbandoned
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateOptimistic: "optimistic",
	StateConfirmed:  "confirmed",
	StateRolledBack: "rolled_back",
	StateAbandoned:  "abandoned",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// SessionAPI is the remote collaborator surface for session actions.
type SessionAPI interface {
	AttendSession(id string) error
	LeaveSession(id string) error
	CancelSession(id string) error
	CreateSession(draft api.SessionDraft) (*api.Session, error)
}

// NoteAPI is the remote collaborator surface for note actions.
type NoteAPI interface {
	CreateNote(draft api.NoteDraft) (*api.Note, error)
	DeleteNote(id string) error
}

// mutation is one in-flight optimistic action.
type mutation struct {
	token       string
	action      Action
	state       State
	startedAt   time.Time
	prevSession *api.Session // rollback snapshot for attend/leave
	prevNote    *api.Note    // rollback snapshot for note delete
	provisional *api.Session // fabricated entity for create fallback
	provNote    *api.Note
}

// ResultMsg is delivered on the update loop when a mutation's remote call
// returns.
type ResultMsg struct {
	Token   string
	Err     error
	Session *api.Session // echoed entity for create
	Note    *api.Note
}

// Outcome tells the owning widget how to settle a mutation.
type Outcome struct {
	State      State
	Action     Action
	Session    *api.Session // restored snapshot on rollback; created entity on create
	Note       *api.Note
	Invalidate bool // cancel settled: publish sessions:invalidate
	Err        error
}

// Controller orchestrates optimistic mutations. One controller is shared
// by all widgets; each mutation is keyed by an opaque token the owning
// widget holds on to.
type Controller struct {
	clock    clock.Clock
	sessions SessionAPI
	notes    NoteAPI
	maxAge   time.Duration

	mu      sync.Mutex
	pending map[string]*mutation
}

// New creates a controller. maxAge bounds how long a pending mutation may
// wait for its remote result before a Sweep abandons it.
func New(clk clock.Clock, sessions SessionAPI, notes NoteAPI, maxAge time.Duration) *Controller {
	return &Controller{
		clock:    clk,
		sessions: sessions,
		notes:    notes,
		maxAge:   maxAge,
		pending:  make(map[string]*mutation),
	}
}

// Attend flips the session to its attending shape and starts the remote
// call. The returned session replaces the caller's cached copy; the
// command delivers a ResultMsg to settle through Resolve.
func (c *Controller) Attend(s api.Session) (api.Session, string, tea.Cmd) {
	prev := s
	s.IsAttending = true
	s.Participants++

	token := c.register(ActionAttend, &mutation{prevSession: &prev})
	return s, token, func() tea.Msg {
		return ResultMsg{Token: token, Err: c.sessions.AttendSession(prev.ID)}
	}
}

// Leave flips the session to its non-attending shape and starts the
// remote call.
func (c *Controller) Leave(s api.Session) (api.Session, string, tea.Cmd) {
	prev := s
	s.IsAttending = false
	if s.Participants > 0 {
		s.Participants--
	}

	token := c.register(ActionLeave, &mutation{prevSession: &prev})
	return s, token, func() tea.Msg {
		return ResultMsg{Token: token, Err: c.sessions.LeaveSession(prev.ID)}
	}
}

// Cancel starts the remote cancellation. The caller removes the session
// from its cache immediately; the removal stands regardless of the remote
// outcome, and settling the mutation requests a sessions:invalidate so
// sibling widgets converge.
func (c *Controller) Cancel(s api.Session) (string, tea.Cmd) {
	token := c.register(ActionCancel, &mutation{prevSession: &s})
	return token, func() tea.Msg {
		return ResultMsg{Token: token, Err: c.sessions.CancelSession(s.ID)}
	}
}

// Create validates the draft locally, then starts the remote call. When
// the call fails past validation, the fabricated provisional session (a
// "local-" identity, tagged Provisional) stands in so the user's input is
// never lost.
func (c *Controller) Create(draft api.SessionDraft) (string, tea.Cmd, error) {
	if err := api.ValidateDraft(draft); err != nil {
		return "", nil, err
	}

	prov := &api.Session{
		ID:              "local-" + uuid.NewString(),
		Title:           draft.Title,
		Course:          draft.Course,
		Date:            draft.Date,
		StartTime:       draft.StartTime,
		EndTime:         draft.EndTime,
		Location:        draft.Location,
		Type:            draft.Type,
		Participants:    1,
		MaxParticipants: draft.MaxParticipants,
		Status:          api.StatusUpcoming,
		IsCreator:       true,
		IsAttending:     true,
		Provisional:     true,
	}

	token := c.register(ActionCreate, &mutation{provisional: prov})
	return token, func() tea.Msg {
		created, err := c.sessions.CreateSession(draft)
		return ResultMsg{Token: token, Err: err, Session: created}
	}, nil
}

// CreateNote mirrors Create for the notes board.
func (c *Controller) CreateNote(draft api.NoteDraft, createdAt time.Time) (string, tea.Cmd, error) {
	if draft.Body == "" {
		return "", nil, &api.Error{Op: "create note", Kind: api.KindValidation, Msg: "body is required"}
	}

	prov := &api.Note{
		ID:          "local-" + uuid.NewString(),
		Title:       draft.Title,
		Body:        draft.Body,
		CreatedAt:   createdAt,
		Provisional: true,
	}

	token := c.register(ActionNoteCreate, &mutation{provNote: prov})
	return token, func() tea.Msg {
		created, err := c.notes.CreateNote(draft)
		return ResultMsg{Token: token, Err: err, Note: created}
	}, nil
}

// DeleteNote removes the note optimistically and starts the remote call;
// a definitive rejection restores the snapshot.
func (c *Controller) DeleteNote(n api.Note) (string, tea.Cmd) {
	token := c.register(ActionNoteDelete, &mutation{prevNote: &n})
	return token, func() tea.Msg {
		return ResultMsg{Token: token, Err: c.notes.DeleteNote(n.ID)}
	}
}

// Resolve settles the mutation named by msg and tells the widget what to
// do. Success and non-authoritative failures confirm the optimistic state;
// conflict/forbidden/not-found rejections return the snapshot for a silent
// restore. Abandoned or unknown tokens yield StateAbandoned: the widget
// ignores the result entirely.
func (c *Controller) Resolve(msg ResultMsg) Outcome {
	c.mu.Lock()
	m, ok := c.pending[msg.Token]
	if ok {
		delete(c.pending, msg.Token)
	}
	c.mu.Unlock()

	if !ok || m.state != StateOptimistic {
		return Outcome{State: StateAbandoned}
	}

	out := Outcome{Action: m.action, Err: msg.Err}

	switch m.action {
	case ActionCancel:
		// Optimistic deletion stands either way; siblings re-fetch.
		m.state = StateConfirmed
		out.State = StateConfirmed
		out.Invalidate = true
		if msg.Err != nil {
			log.Printf("mutate: cancel settled with error (cache already converging): %v", msg.Err)
		}
		return out

	case ActionCreate:
		if msg.Err == nil && msg.Session != nil {
			m.state = StateConfirmed
			out.State = StateConfirmed
			out.Session = msg.Session
			return out
		}
		// Keep the user's input behind a provisional identity.
		m.state = StateConfirmed
		out.State = StateConfirmed
		out.Session = m.provisional
		log.Printf("mutate: create fell back to provisional %s: %v", m.provisional.ID, msg.Err)
		return out

	case ActionNoteCreate:
		if msg.Err == nil && msg.Note != nil {
			m.state = StateConfirmed
			out.State = StateConfirmed
			out.Note = msg.Note
			return out
		}
		m.state = StateConfirmed
		out.State = StateConfirmed
		out.Note = m.provNote
		log.Printf("mutate: note create fell back to provisional %s: %v", m.provNote.ID, msg.Err)
		return out
	}

	// Attend, leave, note delete: roll back only on authoritative
	// rejection.
	if msg.Err != nil && api.KindOf(msg.Err).Authoritative() {
		m.state = StateRolledBack
		out.State = StateRolledBack
		out.Session = m.prevSession
		out.Note = m.prevNote
		log.Printf("mutate: %s rolled back (%s): %v", m.action, api.KindOf(msg.Err), msg.Err)
		return out
	}

	m.state = StateConfirmed
	out.State = StateConfirmed
	return out
}

// Abandon drops a pending mutation so a later result is ignored. Widgets
// call it for their in-flight tokens on unmount; the remote call itself is
// not cancelled, only its reflection.
func (c *Controller) Abandon(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.pending[token]; ok {
		m.state = StateAbandoned
		delete(c.pending, token)
	}
}

// Sweep abandons pending mutations older than the configured maximum age.
// The caches they touched are left exactly as they are: a permanently
// stalled remote call must not corrupt the rest of the state. Returns the
// abandoned tokens.
func (c *Controller) Sweep() []string {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	for token, m := range c.pending {
		if now.Sub(m.startedAt) > c.maxAge {
			m.state = StateAbandoned
			delete(c.pending, token)
			expired = append(expired, token)
			log.Printf("mutate: %s mutation %s abandoned after %v", m.action, token, c.maxAge)
		}
	}
	return expired
}

// PendingCount reports the number of unsettled mutations.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Controller) register(action Action, m *mutation) string {
	m.token = uuid.NewString()
	m.action = action
	m.state = StateOptimistic
	m.startedAt = c.clock.Now()

	c.mu.Lock()
	c.pending[m.token] = m
	c.mu.Unlock()
	return m.token
}

// ReconcileProvisional merges an authoritative session snapshot with any
// provisional entries the cache still holds. An authoritative entity
// matching a provisional one (same title, date and start time) replaces
// it; unmatched provisionals are kept so unconfirmed input survives the
// re-fetch.
func ReconcileProvisional(cached, fetched []api.Session) []api.Session {
	out := make([]api.Session, len(fetched))
	copy(out, fetched)

	for _, c := range cached {
		if !c.Provisional {
			continue
		}
		matched := false
		for _, f := range fetched {
			if f.Title == c.Title && f.Date == c.Date && f.StartTime == c.StartTime {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, c)
		}
	}
	return out
}
