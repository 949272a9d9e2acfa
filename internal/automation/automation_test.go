package automation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/codebanesr/cobrowsing-ws/internal/models"
	"github.com/codebanesr/cobrowsing-ws/internal/repo"
	"github.com/codebanesr/cobrowsing-ws/internal/service"
)

type fakeDriver struct {
	ch chan Frame
}

func newFakeDriver() *fakeDriver { return &fakeDriver{ch: make(chan Frame)} }

func (d *fakeDriver) Input(ctx context.Context, roomId, kind string, payload []byte) error {
	return nil
}
func (d *fakeDriver) Frames() <-chan Frame { return d.ch }
func (d *fakeDriver) Close() error         { return nil }

type memFrames struct {
	mu   sync.Mutex
	data map[string][]byte
	ts   map[string]int64
}

func newMemFrames() *memFrames {
	return &memFrames{data: make(map[string][]byte), ts: make(map[string]int64)}
}

func (f *memFrames) SaveFrame(ctx context.Context, roomId string, data []byte, timestamp int64, ttlSec int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[roomId] = data
	f.ts[roomId] = timestamp
	return nil
}

func (f *memFrames) GetFrame(ctx context.Context, roomId string) ([]byte, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[roomId]
	if !ok {
		return nil, 0, repo.ErrFrameNotFound
	}
	return b, f.ts[roomId], nil
}

func (f *memFrames) savedTimestamp(roomId string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ts[roomId]
}

type nopDirectory struct{}

func (nopDirectory) Register(ctx context.Context, rec models.RoomRecord, ttlSec int) error {
	return nil
}
func (nopDirectory) Touch(ctx context.Context, roomId string, ttlSec int) error { return nil }
func (nopDirectory) Delete(ctx context.Context, roomId string) error            { return nil }

type recordSender struct {
	mu   sync.Mutex
	msgs []map[string]any
}

func (s *recordSender) Send(v any) {
	b, _ := json.Marshal(v)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
}

// waitFor は指定タイプのメッセージが届くまで待ちます
func (s *recordSender) waitFor(t *testing.T, typ string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, m := range s.msgs {
			if m["type"] == typ {
				s.mu.Unlock()
				return m
			}
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", typ)
	return nil
}

func TestStreamerDeliversFrames(t *testing.T) {
	co := service.NewCoordinator(service.NewStore(), service.NewRegistry(), nopDirectory{}, nil, 3600)
	sender := &recordSender{}
	client := co.Connect(sender)
	if err := co.CreateRoom(context.Background(), client); err != nil {
		t.Fatal(err)
	}
	created := sender.waitFor(t, "room-created")
	roomId, _ := created["roomId"].(string)

	drv := newFakeDriver()
	frames := newMemFrames()
	streamer := NewStreamer(drv, co, frames, 30)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		streamer.Run(ctx)
		close(done)
	}()

	drv.ch <- Frame{RoomId: roomId, Screenshot: "data:image/png;base64,AAAA", Timestamp: 42}

	m := sender.waitFor(t, "screen-update")
	if m["screenshot"] != "data:image/png;base64,AAAA" || m["timestamp"] != float64(42) {
		t.Errorf("screen-update = %v", m)
	}

	// 最新フレームとしてキャッシュされている
	data, ts, err := frames.GetFrame(context.Background(), roomId)
	if err != nil {
		t.Fatalf("GetFrame() error = %v", err)
	}
	if string(data) != "data:image/png;base64,AAAA" || ts != 42 {
		t.Errorf("cached frame = %q, ts=%d", data, ts)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop on context cancel")
	}
}

func TestStreamerFillsMissingTimestamp(t *testing.T) {
	co := service.NewCoordinator(service.NewStore(), service.NewRegistry(), nopDirectory{}, nil, 3600)
	sender := &recordSender{}
	client := co.Connect(sender)
	if err := co.CreateRoom(context.Background(), client); err != nil {
		t.Fatal(err)
	}
	roomId, _ := sender.waitFor(t, "room-created")["roomId"].(string)

	drv := newFakeDriver()
	frames := newMemFrames()
	streamer := NewStreamer(drv, co, frames, 30)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go streamer.Run(ctx)

	drv.ch <- Frame{RoomId: roomId, Screenshot: "data:image/png;base64,BBBB"}

	m := sender.waitFor(t, "screen-update")
	if m["timestamp"] == float64(0) {
		t.Error("timestamp not filled in")
	}
	if frames.savedTimestamp(roomId) == 0 {
		t.Error("cached frame timestamp not filled in")
	}
}

func TestStreamerStopsWhenDriverCloses(t *testing.T) {
	co := service.NewCoordinator(service.NewStore(), service.NewRegistry(), nopDirectory{}, nil, 3600)
	drv := newFakeDriver()
	streamer := NewStreamer(drv, co, newMemFrames(), 30)

	done := make(chan struct{})
	go func() {
		streamer.Run(context.Background())
		close(done)
	}()

	// 未知のルーム宛のフレームは破棄されるだけで止まらない
	drv.ch <- Frame{RoomId: "nosuchrm", Screenshot: "data:image/png;base64,CCCC", Timestamp: 1}

	close(drv.ch)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop when driver channel closed")
	}
}
