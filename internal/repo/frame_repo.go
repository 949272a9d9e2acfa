package repo

import (
	"context"
	"errors"
)

// ErrFrameNotFound は画面フレームが保存されていないことを表します
var ErrFrameNotFound = errors.New("screen frame not found")

// FrameRepo はルームごとの最新の画面フレームを保存/取得するためのインターフェースです
// 遅れて参加したクライアントが現在の画面に追いつくために使います
type FrameRepo interface {
	SaveFrame(ctx context.Context, roomId string, data []byte, timestamp int64, ttlSec int) error
	GetFrame(ctx context.Context, roomId string) ([]byte, int64, error)
}
