// Package automation はヘッドレスブラウザ連携の境界を定義します
// 実際のドライバ（画面キャプチャの生成と入力の注入）は外部コラボレーターであり、
// このパッケージはフレームをルームへ流し込むポンプだけを持ちます
package automation

import (
	"context"
	"log"
	"time"

	"github.com/codebanesr/cobrowsing-ws/internal/repo"
	"github.com/codebanesr/cobrowsing-ws/internal/service"
)

// Frame は自動操縦ブラウザが生成した画面キャプチャ1枚です
type Frame struct {
	RoomId     string
	Screenshot string // data URI
	Timestamp  int64
}

// Driver は自動操縦ブラウザの境界です
// Framesは周期的なキャプチャを流すチャネルで、ドライバ側のループが閉じると閉じられます
// Inputはservice.InputDriverを満たします
type Driver interface {
	Input(ctx context.Context, roomId, kind string, payload []byte) error
	Frames() <-chan Frame
	Close() error
}

// Streamer はドライバが生成したフレームをルームへ配信します
// 1フレームごとに最新フレームとしてキャッシュし、screen-updateをルーム全体へ流します
type Streamer struct {
	drv    Driver
	co     *service.Coordinator
	frames repo.FrameRepo
	ttlSec int
}

func NewStreamer(drv Driver, co *service.Coordinator, frames repo.FrameRepo, ttlSec int) *Streamer {
	return &Streamer{drv: drv, co: co, frames: frames, ttlSec: ttlSec}
}

// Run はctxが閉じられるかドライバのチャネルが閉じるまでフレームを配信し続けます
func (s *Streamer) Run(ctx context.Context) {
	for {
		select {
		case f, ok := <-s.drv.Frames():
			if !ok {
				return
			}
			if f.Timestamp == 0 {
				f.Timestamp = time.Now().UnixMilli()
			}
			if err := s.frames.SaveFrame(ctx, f.RoomId, []byte(f.Screenshot), f.Timestamp, s.ttlSec); err != nil {
				log.Printf("failed to cache screen frame (roomId=%s): %v", f.RoomId, err)
			}
			if !s.co.PushFrame(f.RoomId, f.Screenshot, f.Timestamp) {
				log.Printf("dropping frame for unknown room: roomId=%s", f.RoomId)
			}
		case <-ctx.Done():
			return
		}
	}
}
