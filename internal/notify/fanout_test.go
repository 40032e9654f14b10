package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingSink struct {
	mu       sync.Mutex
	messages []Message
	fail     bool
	block    chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, msg Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if s.fail {
		return errors.New("sink offline")
	}
	return nil
}

func (s *recordingSink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func testReport() model.Report {
	authority := uuid.New()
	return model.Report{
		ID:                uuid.New(),
		Category:          model.CategoryGarbage,
		Status:            model.StatusVerified,
		PriorityScore:     9,
		OwnerID:           uuid.New(),
		AssignedAuthority: &authority,
		UpdatedAt:         time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestStatusChangedTargets(t *testing.T) {
	r := testReport()
	ev := StatusChanged(r)

	want := []struct {
		kind    TargetKind
		channel string
		event   string
	}{
		{TargetOwner, UserChannel(r.OwnerID), EventReportStatusChanged},
		{TargetAuthority, AuthorityChannel(*r.AssignedAuthority), EventWorkUpdate},
		{TargetAdmin, AdminChannel, EventReportUpdated},
	}
	if len(ev.Targets) != len(want) {
		t.Fatalf("targets = %d; want %d", len(ev.Targets), len(want))
	}
	for i, w := range want {
		got := ev.Targets[i]
		if got.Kind != w.kind || got.Message.Channel != w.channel || got.Message.Event != w.event {
			t.Errorf("target %d = %s %s/%s; want %s %s/%s", i, got.Kind, got.Message.Channel, got.Message.Event, w.kind, w.channel, w.event)
		}
	}

	r.AssignedAuthority = nil
	r.OwnerID = uuid.Nil
	ev = StatusChanged(r)
	if len(ev.Targets) != 1 || ev.Targets[0].Kind != TargetAdmin {
		t.Errorf("without owner and authority: targets = %+v; want admin only", ev.Targets)
	}
}

func TestStatusChangedPayloadShape(t *testing.T) {
	r := testReport()
	data, err := json.Marshal(StatusChanged(r).Targets[1].Message)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Channel string `json:"channel"`
		Event   string `json:"event"`
		Data    struct {
			ReportID  string `json:"report_id"`
			NewStatus string `json:"new_status"`
			Priority  int    `json:"priority"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Data.ReportID != r.ID.String() || decoded.Data.NewStatus != "verified" || decoded.Data.Priority != 9 {
		t.Errorf("workUpdate payload = %s", data)
	}
}

func TestAssignedWithoutAuthority(t *testing.T) {
	r := testReport()
	r.AssignedAuthority = nil
	if ev := Assigned(r); len(ev.Targets) != 0 {
		t.Errorf("Assigned() targets = %d; want 0", len(ev.Targets))
	}
}

func TestFanoutPreservesPerChannelOrder(t *testing.T) {
	sink := &recordingSink{}
	f := NewFanout(quietLogger(), 64, sink)

	r := testReport()
	statuses := []model.Status{model.StatusVerified, model.StatusInProgress, model.StatusResolved}
	for _, st := range statuses {
		r.Status = st
		f.Publish(context.Background(), StatusChanged(r))
	}
	f.Close()

	byChannel := make(map[string][]model.Status)
	for _, msg := range sink.Messages() {
		switch p := msg.Payload.(type) {
		case StatusChangedPayload:
			byChannel[msg.Channel] = append(byChannel[msg.Channel], p.NewStatus)
		case WorkUpdatePayload:
			byChannel[msg.Channel] = append(byChannel[msg.Channel], p.NewStatus)
		case ReportUpdatedPayload:
			byChannel[msg.Channel] = append(byChannel[msg.Channel], p.NewStatus)
		}
	}
	if len(byChannel) != 3 {
		t.Fatalf("channels = %d; want 3", len(byChannel))
	}
	for channel, got := range byChannel {
		if fmt.Sprint(got) != fmt.Sprint(statuses) {
			t.Errorf("%s received %v; want %v", channel, got, statuses)
		}
	}
}

func TestFanoutSinkFailureDoesNotStopDelivery(t *testing.T) {
	failing := &recordingSink{fail: true}
	healthy := &recordingSink{}
	f := NewFanout(quietLogger(), 8, failing, healthy)

	f.Publish(context.Background(), StatusChanged(testReport()))
	f.Publish(context.Background(), StatusChanged(testReport()))
	f.Close()

	if n := len(healthy.Messages()); n != 6 {
		t.Errorf("healthy sink received %d messages; want 6", n)
	}
	if n := len(failing.Messages()); n != 6 {
		t.Errorf("failing sink was attempted %d times; want 6", n)
	}
}

func TestFanoutSkipsCancelledContext(t *testing.T) {
	sink := &recordingSink{}
	f := NewFanout(quietLogger(), 8, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Publish(ctx, StatusChanged(testReport()))
	f.Close()

	if n := len(sink.Messages()); n != 0 {
		t.Errorf("delivered %d messages for a cancelled context; want 0", n)
	}
}

func TestFanoutDropsWhenQueueFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	f := NewFanout(quietLogger(), 1, sink)

	r := testReport()
	r.AssignedAuthority = nil
	r.OwnerID = uuid.Nil
	// One message is picked up by the blocked worker, one waits in the queue,
	// the rest are dropped.
	for i := 0; i < 5; i++ {
		f.Publish(context.Background(), StatusChanged(r))
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		f.Close()
		close(done)
	}()
	close(sink.block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	if n := len(sink.Messages()); n != 2 {
		t.Errorf("delivered %d messages; want 2", n)
	}
}

func TestFanoutPublishAfterClose(t *testing.T) {
	sink := &recordingSink{}
	f := NewFanout(quietLogger(), 8, sink)
	f.Close()
	f.Close()

	f.Publish(context.Background(), StatusChanged(testReport()))
	if n := len(sink.Messages()); n != 0 {
		t.Errorf("delivered %d messages after Close; want 0", n)
	}
}

type fakeRooms struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func (f *fakeRooms) BroadcastToRoom(room string, data []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[string][][]byte)
	}
	f.sent[room] = append(f.sent[room], data)
	return 1
}

func TestWebSocketSinkUsesChannelAsRoom(t *testing.T) {
	rooms := &fakeRooms{}
	sink := NewWebSocketSink(rooms)
	msg := Message{Channel: AdminChannel, Event: EventReportUpdated, Payload: map[string]string{"k": "v"}}

	if err := sink.Send(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	frames := rooms.sent[AdminChannel]
	if len(frames) != 1 {
		t.Fatalf("frames = %d; want 1", len(frames))
	}
	want := `{"channel":"admin_dashboard","event":"reportUpdated","data":{"k":"v"}}`
	if string(frames[0]) != want {
		t.Errorf("frame = %s; want %s", frames[0], want)
	}
}
