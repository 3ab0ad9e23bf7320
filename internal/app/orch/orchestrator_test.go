package orch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	text   []core.Frame
	binary []core.Frame
	fail   bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backpressure")
	}
	f.text = append(f.text, fr)
	return nil
}

func (f *fakeConn) TrySendBinary(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backpressure")
	}
	f.binary = append(f.binary, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) binaryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.binary)
}

type speakEvent struct {
	room     domain.RoomID
	id       core.ConnID
	speaking bool
}

type fakeNotifier struct {
	mu       sync.Mutex
	speaking []speakEvent
	cleared  []domain.RoomID
	speakCh  chan speakEvent
	clearCh  chan domain.RoomID
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		speakCh: make(chan speakEvent, 16),
		clearCh: make(chan domain.RoomID, 16),
	}
}

func (n *fakeNotifier) UserSpeaking(room domain.RoomID, id core.ConnID, speaking bool) {
	n.mu.Lock()
	n.speaking = append(n.speaking, speakEvent{room, id, speaking})
	n.mu.Unlock()
	n.speakCh <- speakEvent{room, id, speaking}
}

func (n *fakeNotifier) ChatCleared(room domain.RoomID, msg domain.ChatMessage) {
	n.mu.Lock()
	n.cleared = append(n.cleared, room)
	n.mu.Unlock()
	n.clearCh <- room
}

func (n *fakeNotifier) speakingEvents() []speakEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]speakEvent, len(n.speaking))
	copy(out, n.speaking)
	return out
}

func newOrchestrator(t *testing.T) (*orch.Orchestrator, *fakeNotifier) {
	t.Helper()
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Chat:     app.NewChatLog(50),
		Policy:   app.SimplePolicy{},
	}
	o.Speaking = app.NewSpeakingTracker(40*time.Millisecond, o.OnSpeakingTimeout)
	n := newFakeNotifier()
	o.Notify = n
	return o, n
}

func connect(t *testing.T, o *orch.Orchestrator, cid core.ConnID, uid string) (*fakeConn, context.CancelFunc) {
	t.Helper()
	user, err := domain.NewUser(domain.UserID(uid), "name-"+uid, "")
	if err != nil {
		t.Fatal(err)
	}
	conn := &fakeConn{}
	sess := core.NewMemberSession(domain.NewMember(user), conn)
	_, cancel := context.WithCancel(context.Background())
	if err := o.Connect(cid, user, sess, cancel); err != nil {
		t.Fatalf("Connect(%s): %v", cid, err)
	}
	return conn, cancel
}

func TestJoinReturnsRosterAndHistory(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	connect(t, o, "b", "u-b")

	o.Chat.Append("lobby", domain.ChatMessage{Body: "earlier"})

	res, ok := o.Join("a", "lobby")
	if !ok || len(res.Roster) != 1 || res.Roster[0].ID != "a" {
		t.Fatalf("first join roster = %v", res.Roster)
	}

	res, ok = o.Join("b", "lobby")
	if !ok {
		t.Fatal("second join failed")
	}
	if len(res.Roster) != 2 {
		t.Fatalf("roster size = %d, want 2", len(res.Roster))
	}
	// Joiner sees itself plus the existing member, ordered by join time.
	if res.Roster[0].ID != "a" || res.Roster[1].ID != "b" {
		t.Errorf("roster order = %s,%s", res.Roster[0].ID, res.Roster[1].ID)
	}
	if len(res.History) != 1 || res.History[0].Body != "earlier" {
		t.Errorf("history not replayed: %v", res.History)
	}
}

func TestDuplicateSessionLifecycle(t *testing.T) {
	o, _ := newOrchestrator(t)
	user, _ := domain.NewUser("u1", "dup", "")

	connA := &fakeConn{}
	if err := o.Connect("a", user, core.NewMemberSession(domain.NewMember(user), connA), nil); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	connB := &fakeConn{}
	err := o.Connect("b", user, core.NewMemberSession(domain.NewMember(user), connB), nil)
	if !errors.Is(err, app.ErrDuplicateSession) {
		t.Fatalf("second connect = %v, want ErrDuplicateSession", err)
	}

	// The rejected handshake must not have created state for conn b.
	if _, ok := o.Registry.GetSession("b"); ok {
		t.Fatal("rejected connection left a session behind")
	}

	if _, _, ok := o.Disconnect("a"); ok {
		t.Fatal("disconnect of unjoined connection reported a room")
	}
	if err := o.Connect("b", user, core.NewMemberSession(domain.NewMember(user), connB), nil); err != nil {
		t.Fatalf("reconnect after disconnect: %v", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	if _, ok := o.Join("a", "lobby"); !ok {
		t.Fatal("join failed")
	}

	room, user, had := o.Disconnect("a")
	if !had || room != "lobby" || user == nil {
		t.Fatalf("first disconnect = (%s, %v, %v)", room, user, had)
	}

	room, user, had = o.Disconnect("a")
	if had || user != nil || room != "" {
		t.Fatalf("second disconnect not a no-op: (%s, %v, %v)", room, user, had)
	}
}

func TestEmptyRoomReclaimed(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	connect(t, o, "b", "u-b")
	o.Join("a", "lobby")
	o.Join("b", "lobby")
	o.PostChat("a", "hi", time.Time{})

	o.Disconnect("a")
	if _, ok := o.Rooms.Get("lobby"); !ok {
		t.Fatal("room reclaimed while a member remained")
	}

	o.Disconnect("b")
	if _, ok := o.Rooms.Get("lobby"); ok {
		t.Fatal("empty room not reclaimed")
	}
	if got := o.Chat.History("lobby"); got != nil {
		t.Fatalf("chat history survived room reclaim: %v", got)
	}
}

func TestTargetResolution(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	connect(t, o, "b", "u-b")
	connect(t, o, "c", "u-c")
	o.Join("a", "red")
	o.Join("b", "red")
	o.Join("c", "blue")

	if _, ok := o.TargetInRoom("a", "b"); !ok {
		t.Error("same-room target not resolved")
	}
	if _, ok := o.TargetInRoom("a", "c"); ok {
		t.Error("cross-room target resolved for a call")
	}
	if _, ok := o.TargetInRoom("a", "ghost"); ok {
		t.Error("absent target resolved")
	}
	if _, ok := o.TargetLive("c"); !ok {
		t.Error("live target not resolved by liveness check")
	}
	if _, ok := o.TargetLive("ghost"); ok {
		t.Error("absent target passed liveness check")
	}
}

func TestRelayAudioFanoutAndSpeakingTransitions(t *testing.T) {
	o, n := newOrchestrator(t)
	connA, _ := connect(t, o, "a", "u-a")
	connB, _ := connect(t, o, "b", "u-b")
	o.Join("a", "lobby")
	o.Join("b", "lobby")

	for i := 0; i < 3; i++ {
		o.RelayAudio("a", core.Frame{0x01})
	}

	if got := connB.binaryCount(); got != 3 {
		t.Fatalf("receiver got %d frames, want 3", got)
	}
	if got := connA.binaryCount(); got != 0 {
		t.Fatalf("sender echoed %d frames", got)
	}

	// Exactly one start transition for the burst.
	ev := <-n.speakCh
	if !ev.speaking || ev.id != "a" || ev.room != "lobby" {
		t.Fatalf("unexpected transition %+v", ev)
	}

	// One stop after the window, not one per missed tick.
	select {
	case ev = <-n.speakCh:
		if ev.speaking {
			t.Fatalf("expected stop transition, got %+v", ev)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("stop transition never fired")
	}
	time.Sleep(80 * time.Millisecond)
	if got := len(n.speakingEvents()); got != 2 {
		t.Fatalf("transitions = %d, want 2", got)
	}
}

func TestSpeakingTimeoutAfterDisconnectIsNoop(t *testing.T) {
	o, n := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	connect(t, o, "b", "u-b")
	o.Join("a", "lobby")
	o.Join("b", "lobby")

	o.RelayAudio("a", core.Frame{0x01})
	<-n.speakCh // start transition

	o.Disconnect("a")
	time.Sleep(120 * time.Millisecond)

	for _, ev := range n.speakingEvents() {
		if !ev.speaking {
			t.Fatal("stop transition fired against a torn-down member")
		}
	}
}

func TestBackpressureKicksSlowConsumer(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	connB, cancelB := connect(t, o, "b", "u-b")
	_ = cancelB
	o.Join("a", "lobby")
	o.Join("b", "lobby")

	ctx, cancel := context.WithCancel(context.Background())
	// Rebind b with an observable cancel func.
	sess, _ := o.Registry.GetSession("b")
	o.Registry.Bind("b", sess, cancel)
	o.Registry.UpdateRoom("b", "lobby")

	connB.fail = true
	o.RelayAudio("a", core.Frame{0x01})

	select {
	case <-ctx.Done():
	default:
		t.Fatal("slow consumer was not kicked")
	}
}

func TestExplicitSpeakingChangeDetection(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	o.Join("a", "lobby")

	if _, changed := o.SetSpeaking("a", false); changed {
		t.Error("no-op flag update reported a change")
	}
	room, changed := o.SetSpeaking("a", true)
	if !changed || room != "lobby" {
		t.Errorf("SetSpeaking = (%s, %v)", room, changed)
	}
	if _, changed := o.SetSpeaking("a", true); changed {
		t.Error("repeated flag value reported a change")
	}
}

func TestPostChatRequiresRoom(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")

	if _, _, ok := o.PostChat("a", "hello", time.Time{}); ok {
		t.Fatal("chat accepted from a connection outside any room")
	}

	o.Join("a", "lobby")
	room, msg, ok := o.PostChat("a", "hello", time.Time{})
	if !ok || room != "lobby" {
		t.Fatalf("PostChat = (%s, ok=%v)", room, ok)
	}
	if msg.ID == "" || msg.ServerTime.IsZero() || msg.From != "u-a" {
		t.Errorf("message not stamped: %+v", msg)
	}
}

func TestChatSweeperClearsActiveRooms(t *testing.T) {
	o, n := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	o.Join("a", "lobby")
	o.PostChat("a", "hello", time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.RunChatSweeper(ctx, 30*time.Millisecond)

	select {
	case room := <-n.clearCh:
		if room != "lobby" {
			t.Fatalf("cleared room = %s", room)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper never fired")
	}

	history := o.Chat.History("lobby")
	if len(history) != 1 || !history[0].System {
		t.Fatalf("history after sweep = %v", history)
	}
}

func TestRoomSwitchLeavesPreviousRoom(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	connect(t, o, "b", "u-b")
	o.Join("a", "red")
	o.Join("b", "red")

	res, ok := o.Join("b", "blue")
	if !ok {
		t.Fatal("switch join failed")
	}
	if res.Prev != "red" {
		t.Fatalf("previous room = %q, want red", res.Prev)
	}
	if res.Rejoin {
		t.Error("room switch reported as re-join")
	}

	red, ok := o.Rooms.Get("red")
	if !ok {
		t.Fatal("previous room reclaimed while a member remained")
	}
	if _, ok := red.Member("b"); ok {
		t.Error("switched member still in previous room")
	}
}

func TestRejoinSameRoomIsMetadataRefresh(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	o.Join("a", "lobby")

	res, ok := o.Join("a", "lobby")
	if !ok {
		t.Fatal("re-join failed")
	}
	if !res.Rejoin {
		t.Error("re-join not reported")
	}
	if res.Prev != "" {
		t.Errorf("re-join reported a previous room %q", res.Prev)
	}
	if len(res.Roster) != 1 {
		t.Errorf("roster size = %d after re-join, want 1", len(res.Roster))
	}
}

func TestConcurrentRelayAndRosterReads(t *testing.T) {
	o, _ := newOrchestrator(t)
	connect(t, o, "a", "u-a")
	connect(t, o, "b", "u-b")
	o.Join("a", "lobby")
	o.Join("b", "lobby")
	room, ok := o.Rooms.Get("lobby")
	if !ok {
		t.Fatal("room missing")
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			o.RelayAudio("a", core.Frame{0x01})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			o.SetMuted("b", i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			room.MembersSnapshot()
		}
	}()
	wg.Wait()
}
