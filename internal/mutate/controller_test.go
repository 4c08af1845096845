package mutate

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/clock"
)

// fakeSessionAPI scripts per-call outcomes for the session endpoints.
type fakeSessionAPI struct {
	attendErr error
	leaveErr  error
	cancelErr error
	created   *api.Session
	createErr error
	calls     []string
}

func (f *fakeSessionAPI) AttendSession(id string) error {
	f.calls = append(f.calls, "attend "+id)
	return f.attendErr
}

func (f *fakeSessionAPI) LeaveSession(id string) error {
	f.calls = append(f.calls, "leave "+id)
	return f.leaveErr
}

func (f *fakeSessionAPI) CancelSession(id string) error {
	f.calls = append(f.calls, "cancel "+id)
	return f.cancelErr
}

func (f *fakeSessionAPI) CreateSession(draft api.SessionDraft) (*api.Session, error) {
	f.calls = append(f.calls, "create "+draft.Title)
	return f.created, f.createErr
}

type fakeNoteAPI struct {
	created   *api.Note
	createErr error
	deleteErr error
}

func (f *fakeNoteAPI) CreateNote(draft api.NoteDraft) (*api.Note, error) {
	return f.created, f.createErr
}

func (f *fakeNoteAPI) DeleteNote(id string) error { return f.deleteErr }

func newController(sessions SessionAPI, notes NoteAPI) (*Controller, *clock.Fixed) {
	clk := clock.NewFixed(time.Date(2025, time.October, 2, 10, 0, 0, 0, time.UTC))
	return New(clk, sessions, notes, 30*time.Second), clk
}

func TestAttendOptimisticShape(t *testing.T) {
	ctrl, _ := newController(&fakeSessionAPI{}, &fakeNoteAPI{})

	s := api.Session{ID: "s1", Participants: 3, MaxParticipants: 10}
	got, token, cmd := ctrl.Attend(s)

	if !got.IsAttending {
		t.Error("IsAttending not flipped")
	}
	if got.Participants != 4 {
		t.Errorf("Participants = %d, want 4", got.Participants)
	}
	if token == "" || cmd == nil {
		t.Fatal("missing token or command")
	}
	if ctrl.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", ctrl.PendingCount())
	}
}

func TestAttendRollbackRestoresSnapshot(t *testing.T) {
	// A full session: the optimistic flip happens locally, the backend
	// rejects with a conflict, and the settle must hand back the literal
	// pre-action values.
	sessions := &fakeSessionAPI{
		attendErr: &api.Error{Op: "attend session", Kind: api.KindConflict, Status: 409, Msg: "session full"},
	}
	ctrl, _ := newController(sessions, &fakeNoteAPI{})

	before := api.Session{ID: "s1", Title: "Exam prep", Participants: 10, MaxParticipants: 10}
	_, _, cmd := ctrl.Attend(before)

	msg := cmd().(ResultMsg)
	out := ctrl.Resolve(msg)

	if out.State != StateRolledBack {
		t.Fatalf("State = %s, want rolled_back", out.State)
	}
	if out.Session == nil {
		t.Fatal("rollback outcome carries no snapshot")
	}
	if *out.Session != before {
		t.Errorf("snapshot = %+v, want the literal pre-action session %+v", *out.Session, before)
	}
	if out.Action != ActionAttend {
		t.Errorf("Action = %s, want attend", out.Action)
	}
	if ctrl.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after settle, want 0", ctrl.PendingCount())
	}
}

func TestAttendTransientFailureConfirms(t *testing.T) {
	sessions := &fakeSessionAPI{
		attendErr: &api.Error{Op: "attend session", Kind: api.KindTransient, Msg: "connection refused"},
	}
	ctrl, _ := newController(sessions, &fakeNoteAPI{})

	_, _, cmd := ctrl.Attend(api.Session{ID: "s1"})
	out := ctrl.Resolve(cmd().(ResultMsg))

	// Non-authoritative failure: the optimistic state stands.
	if out.State != StateConfirmed {
		t.Errorf("State = %s, want confirmed", out.State)
	}
	if out.Session != nil {
		t.Error("transient failure returned a rollback snapshot")
	}
}

func TestLeaveOptimisticShape(t *testing.T) {
	ctrl, _ := newController(&fakeSessionAPI{}, &fakeNoteAPI{})

	got, _, _ := ctrl.Leave(api.Session{ID: "s1", IsAttending: true, Participants: 1})
	if got.IsAttending {
		t.Error("IsAttending not cleared")
	}
	if got.Participants != 0 {
		t.Errorf("Participants = %d, want 0", got.Participants)
	}

	// Participant count never goes negative.
	got, _, _ = ctrl.Leave(api.Session{ID: "s2", IsAttending: true, Participants: 0})
	if got.Participants != 0 {
		t.Errorf("Participants = %d, want floor at 0", got.Participants)
	}
}

func TestCancelSettlesWithInvalidate(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "success", err: nil},
		{name: "remote rejection", err: &api.Error{Kind: api.KindForbidden, Status: 403}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, _ := newController(&fakeSessionAPI{cancelErr: tt.err}, &fakeNoteAPI{})

			_, cmd := ctrl.Cancel(api.Session{ID: "s1"})
			out := ctrl.Resolve(cmd().(ResultMsg))

			// The optimistic removal stands regardless; siblings re-fetch.
			if out.State != StateConfirmed {
				t.Errorf("State = %s, want confirmed", out.State)
			}
			if !out.Invalidate {
				t.Error("cancel outcome did not request an invalidate")
			}
		})
	}
}

func TestCreateConfirmsWithEcho(t *testing.T) {
	created := &api.Session{ID: "s99", Title: "Exam prep", Date: "2025-10-02", StartTime: "10:00"}
	ctrl, _ := newController(&fakeSessionAPI{created: created}, &fakeNoteAPI{})

	draft := api.SessionDraft{Title: "Exam prep", Date: "2025-10-02", StartTime: "10:00", EndTime: "11:00"}
	_, cmd, err := ctrl.Create(draft)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	out := ctrl.Resolve(cmd().(ResultMsg))
	if out.State != StateConfirmed {
		t.Fatalf("State = %s, want confirmed", out.State)
	}
	if out.Session == nil || out.Session.ID != "s99" {
		t.Errorf("Session = %+v, want the backend echo", out.Session)
	}
}

func TestCreateFallsBackToProvisional(t *testing.T) {
	sessions := &fakeSessionAPI{createErr: errors.New("boom")}
	ctrl, _ := newController(sessions, &fakeNoteAPI{})

	draft := api.SessionDraft{Title: "Exam prep", Date: "2025-10-02", StartTime: "10:00", EndTime: "11:00"}
	_, cmd, err := ctrl.Create(draft)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	out := ctrl.Resolve(cmd().(ResultMsg))
	if out.State != StateConfirmed {
		t.Fatalf("State = %s, want confirmed", out.State)
	}
	if out.Session == nil {
		t.Fatal("no provisional session in the outcome")
	}
	if !strings.HasPrefix(out.Session.ID, "local-") {
		t.Errorf("provisional ID = %s, want local- prefix", out.Session.ID)
	}
	if !out.Session.Provisional {
		t.Error("fallback session not tagged Provisional")
	}
	if !out.Session.IsCreator || !out.Session.IsAttending || out.Session.Participants != 1 {
		t.Errorf("provisional shape = %+v", out.Session)
	}
	if out.Session.Title != "Exam prep" || out.Session.Date != "2025-10-02" {
		t.Errorf("draft fields lost: %+v", out.Session)
	}
}

func TestCreateRejectsInvalidDraftLocally(t *testing.T) {
	sessions := &fakeSessionAPI{}
	ctrl, _ := newController(sessions, &fakeNoteAPI{})

	_, cmd, err := ctrl.Create(api.SessionDraft{Title: "no date"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if cmd != nil {
		t.Error("invalid draft produced a command")
	}
	if api.KindOf(err) != api.KindValidation {
		t.Errorf("KindOf = %s, want validation", api.KindOf(err))
	}
	if len(sessions.calls) != 0 {
		t.Errorf("invalid draft reached the remote: %v", sessions.calls)
	}
	if ctrl.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", ctrl.PendingCount())
	}
}

func TestNoteDeleteRollback(t *testing.T) {
	notes := &fakeNoteAPI{deleteErr: &api.Error{Kind: api.KindNotFound, Status: 404}}
	ctrl, _ := newController(&fakeSessionAPI{}, notes)

	note := api.Note{ID: "n1", Title: "Week 5 summary", Body: "## Topics"}
	_, cmd := ctrl.DeleteNote(note)
	out := ctrl.Resolve(cmd().(ResultMsg))

	if out.State != StateRolledBack {
		t.Fatalf("State = %s, want rolled_back", out.State)
	}
	if out.Note == nil || out.Note.ID != "n1" || out.Note.Body != "## Topics" {
		t.Errorf("Note snapshot = %+v", out.Note)
	}
}

func TestNoteCreateFallsBackToProvisional(t *testing.T) {
	notes := &fakeNoteAPI{createErr: errors.New("boom")}
	ctrl, clk := newController(&fakeSessionAPI{}, notes)

	_, cmd, err := ctrl.CreateNote(api.NoteDraft{Title: "t", Body: "b"}, clk.Now())
	if err != nil {
		t.Fatalf("CreateNote returned error: %v", err)
	}

	out := ctrl.Resolve(cmd().(ResultMsg))
	if out.State != StateConfirmed || out.Note == nil {
		t.Fatalf("outcome = %+v", out)
	}
	if !out.Note.Provisional || !strings.HasPrefix(out.Note.ID, "local-") {
		t.Errorf("provisional note = %+v", out.Note)
	}
}

func TestResolveUnknownTokenIsAbandoned(t *testing.T) {
	ctrl, _ := newController(&fakeSessionAPI{}, &fakeNoteAPI{})

	out := ctrl.Resolve(ResultMsg{Token: "no-such-token"})
	if out.State != StateAbandoned {
		t.Errorf("State = %s, want abandoned", out.State)
	}
}

func TestAbandonSilencesLateResult(t *testing.T) {
	ctrl, _ := newController(&fakeSessionAPI{
		attendErr: &api.Error{Kind: api.KindConflict, Status: 409},
	}, &fakeNoteAPI{})

	_, token, cmd := ctrl.Attend(api.Session{ID: "s1"})
	ctrl.Abandon(token)

	out := ctrl.Resolve(cmd().(ResultMsg))
	if out.State != StateAbandoned {
		t.Errorf("State = %s, want abandoned", out.State)
	}
	if out.Session != nil {
		t.Error("abandoned mutation still produced a rollback snapshot")
	}
}

func TestSweepAbandonsStalePending(t *testing.T) {
	ctrl, clk := newController(&fakeSessionAPI{}, &fakeNoteAPI{})

	_, staleToken, _ := ctrl.Attend(api.Session{ID: "s1"})
	clk.Advance(20 * time.Second)
	_, freshToken, _ := ctrl.Attend(api.Session{ID: "s2"})
	clk.Advance(15 * time.Second) // stale is now 35s old, fresh 15s

	expired := ctrl.Sweep()
	if len(expired) != 1 || expired[0] != staleToken {
		t.Fatalf("Sweep expired %v, want [%s]", expired, staleToken)
	}
	if ctrl.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", ctrl.PendingCount())
	}

	// The stale mutation's late result is ignored; the fresh one settles.
	if out := ctrl.Resolve(ResultMsg{Token: staleToken}); out.State != StateAbandoned {
		t.Errorf("stale settle = %s, want abandoned", out.State)
	}
	if out := ctrl.Resolve(ResultMsg{Token: freshToken}); out.State != StateConfirmed {
		t.Errorf("fresh settle = %s, want confirmed", out.State)
	}
}

func TestReconcileProvisional(t *testing.T) {
	prov := api.Session{
		ID: "local-abc", Title: "Exam prep", Date: "2025-10-02", StartTime: "10:00", Provisional: true,
	}
	unmatched := api.Session{
		ID: "local-def", Title: "Reading group", Date: "2025-10-05", StartTime: "16:00", Provisional: true,
	}

	tests := []struct {
		name    string
		cached  []api.Session
		fetched []api.Session
		wantIDs []string
	}{
		{
			name:    "matched provisional replaced by authority",
			cached:  []api.Session{prov},
			fetched: []api.Session{{ID: "s9", Title: "Exam prep", Date: "2025-10-02", StartTime: "10:00"}},
			wantIDs: []string{"s9"},
		},
		{
			name:    "unmatched provisional survives",
			cached:  []api.Session{unmatched},
			fetched: []api.Session{{ID: "s1", Title: "Other", Date: "2025-10-01", StartTime: "09:00"}},
			wantIDs: []string{"s1", "local-def"},
		},
		{
			name:    "non-provisional cache entries dropped in favor of snapshot",
			cached:  []api.Session{{ID: "s7", Title: "Stale", Date: "2025-09-30", StartTime: "08:00"}},
			fetched: []api.Session{{ID: "s8", Title: "Fresh", Date: "2025-10-01", StartTime: "09:00"}},
			wantIDs: []string{"s8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileProvisional(tt.cached, tt.fetched)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d (%+v)", len(got), len(tt.wantIDs), got)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
