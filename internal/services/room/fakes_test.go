package room

import (
	"context"
	"sync"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/results"
)

type sentEvent struct {
	RoomID  model.RoomID
	Event   model.EventType
	Payload any
}

// recordingHub captures broadcasts and group membership
type recordingHub struct {
	mu      sync.Mutex
	events  []sentEvent
	members map[model.RoomID]map[model.PlayerKey]bool
	closed  []model.RoomID
}

func newRecordingHub() *recordingHub {
	return &recordingHub{members: make(map[model.RoomID]map[model.PlayerKey]bool)}
}

func (h *recordingHub) Join(roomID model.RoomID, key model.PlayerKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.members[roomID] == nil {
		h.members[roomID] = make(map[model.PlayerKey]bool)
	}
	h.members[roomID][key] = true
}

func (h *recordingHub) Leave(roomID model.RoomID, key model.PlayerKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members[roomID], key)
}

func (h *recordingHub) Broadcast(roomID model.RoomID, event model.EventType, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, sentEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (h *recordingHub) Close(roomID model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members, roomID)
	h.closed = append(h.closed, roomID)
}

func (h *recordingHub) eventsOf(roomID model.RoomID, event model.EventType) []sentEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sentEvent
	for _, e := range h.events {
		if e.RoomID == roomID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (h *recordingHub) eventNames(roomID model.RoomID) []model.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.EventType
	for _, e := range h.events {
		if e.RoomID == roomID {
			out = append(out, e.Event)
		}
	}
	return out
}

func (h *recordingHub) isMember(roomID model.RoomID, key model.PlayerKey) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.members[roomID][key]
}

func (h *recordingHub) wasClosed(roomID model.RoomID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.closed {
		if id == roomID {
			return true
		}
	}
	return false
}

// stubPassages returns a fixed passage or error
type stubPassages struct {
	passage *model.Passage
	err     error
}

func (p *stubPassages) Random(context.Context, string) (*model.Passage, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.passage, nil
}

// fakeRecorder records persistence calls
type fakeRecorder struct {
	mu      sync.Mutex
	records []results.Record
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, rec results.Record) (*model.RaceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	if f.err != nil {
		return nil, f.err
	}
	return &model.RaceResult{ID: "r1", UserID: rec.UserID, WPM: rec.WPM}, nil
}

func (f *fakeRecorder) calls() []results.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]results.Record(nil), f.records...)
}
