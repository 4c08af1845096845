package connections

import (
	"testing"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
)

type fakePartnerAPI struct {
	partners  []api.Partner
	acceptErr error
	rejectErr error
	accepted  []string
	rejected  []string
}

func (f *fakePartnerAPI) SearchPartners() ([]api.Partner, error) {
	out := make([]api.Partner, len(f.partners))
	copy(out, f.partners)
	return out, nil
}

func (f *fakePartnerAPI) AcceptPartnerRequest(requestID string) error {
	f.accepted = append(f.accepted, requestID)
	return f.acceptErr
}

func (f *fakePartnerAPI) RejectPartnerRequest(requestID string) error {
	f.rejected = append(f.rejected, requestID)
	return f.rejectErr
}

func incoming(id, reqID string) api.Partner {
	return api.Partner{
		ID: id, Name: "Partner " + id, RequestID: reqID,
		ConnectionStatus: api.ConnectionPending,
	}
}

func newWidget(remote *fakePartnerAPI) (*Model, *event.Bus) {
	bus := event.NewBus()
	m := New(bus, remote)
	if cmd := m.Mount(); cmd != nil {
		m.Update(cmd())
	}
	return m, bus
}

func TestVisibleOrdersAcceptedBeforeIncoming(t *testing.T) {
	remote := &fakePartnerAPI{partners: []api.Partner{
		incoming("p1", "r1"),
		{ID: "p2", Name: "Connected", ConnectionStatus: api.ConnectionAccepted},
		{ID: "p3", Name: "Outgoing", ConnectionStatus: api.ConnectionPending, IsPendingSent: true},
		{ID: "p4", Name: "Stranger"},
	}}
	m, _ := newWidget(remote)

	got := m.visible()
	if len(got) != 2 {
		t.Fatalf("visible = %v, want accepted + incoming only", got)
	}
	if got[0].ID != "p2" || got[1].ID != "p1" {
		t.Errorf("order = %s, %s; want accepted first", got[0].ID, got[1].ID)
	}
}

func TestAcceptTransitionsAndPublishes(t *testing.T) {
	remote := &fakePartnerAPI{partners: []api.Partner{incoming("p1", "r1")}}
	m, bus := newWidget(remote)

	acceptedBy := ""
	bus.Subscribe(event.TopicPartnerAccepted, func(evt event.Event) {
		acceptedBy = evt.(event.PartnerAccepted).AcceptedBy
	})

	cmd, consumed := m.HandleKey("a")
	if !consumed || cmd == nil {
		t.Fatal("accept key produced no command")
	}

	// Optimistic transition happens before the remote result.
	if got := m.Partners()[0]; got.ConnectionStatus != api.ConnectionAccepted {
		t.Errorf("status = %s, want accepted immediately", got.ConnectionStatus)
	}

	m.Update(cmd())

	if acceptedBy != "p1" {
		t.Errorf("published AcceptedBy = %q, want p1", acceptedBy)
	}
	if len(remote.accepted) != 1 || remote.accepted[0] != "r1" {
		t.Errorf("remote accept calls = %v, want request r1", remote.accepted)
	}
}

func TestRejectTransitionsAndPublishes(t *testing.T) {
	remote := &fakePartnerAPI{partners: []api.Partner{incoming("p1", "r1")}}
	m, bus := newWidget(remote)

	rejectedBy := ""
	bus.Subscribe(event.TopicPartnerRejected, func(evt event.Event) {
		rejectedBy = evt.(event.PartnerRejected).RejectedBy
	})

	cmd, _ := m.HandleKey("d")
	if cmd == nil {
		t.Fatal("decline key produced no command")
	}
	if got := m.Partners()[0]; got.ConnectionStatus != api.ConnectionNone {
		t.Errorf("status = %s, want none immediately", got.ConnectionStatus)
	}

	m.Update(cmd())
	if rejectedBy != "p1" {
		t.Errorf("published RejectedBy = %q, want p1", rejectedBy)
	}
	if len(remote.rejected) != 1 || remote.rejected[0] != "r1" {
		t.Errorf("remote reject calls = %v", remote.rejected)
	}
}

func TestDecideRequiresIncomingWithRequestID(t *testing.T) {
	tests := []struct {
		name    string
		partner api.Partner
	}{
		{
			name:    "outgoing pending",
			partner: api.Partner{ID: "p1", RequestID: "r1", ConnectionStatus: api.ConnectionPending, IsPendingSent: true},
		},
		{
			name:    "already accepted",
			partner: api.Partner{ID: "p1", ConnectionStatus: api.ConnectionAccepted},
		},
		{
			name:    "pending without request id",
			partner: api.Partner{ID: "p1", ConnectionStatus: api.ConnectionPending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakePartnerAPI{partners: []api.Partner{tt.partner}}
			m, _ := newWidget(remote)

			if cmd, _ := m.HandleKey("a"); cmd != nil {
				t.Error("decide produced a command for an ineligible partner")
			}
			if len(remote.accepted) != 0 {
				t.Errorf("remote calls = %v", remote.accepted)
			}
		})
	}
}

func TestPartnerEventQueuesRefetch(t *testing.T) {
	remote := &fakePartnerAPI{}
	m, bus := newWidget(remote)

	bus.Publish(event.PartnerAccepted{AcceptedBy: "p9"})
	if m.Flush() == nil {
		t.Error("partner event queued no re-fetch")
	}

	bus.Publish(event.BuddiesInvalidate{})
	if m.Flush() == nil {
		t.Error("invalidate queued no re-fetch")
	}
}

func TestUnmountStopsDelivery(t *testing.T) {
	remote := &fakePartnerAPI{}
	m, bus := newWidget(remote)
	m.Unmount()

	bus.Publish(event.PartnerAccepted{AcceptedBy: "p1"})
	if m.Flush() != nil {
		t.Error("unmounted widget queued a command")
	}
	if bus.SubscriberCount(event.TopicPartnerAccepted) != 0 {
		t.Error("subscription leaked after unmount")
	}
}
