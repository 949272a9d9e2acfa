package repo

import (
	"context"
	"errors"

	"github.com/codebanesr/cobrowsing-ws/internal/models"
)

// ErrRoomTaken は同じIDのルームがすでにディレクトリに登録されていることを表します
var ErrRoomTaken = errors.New("room already registered")

// RoomDirectory は開いているルームのメタデータを共有ストアへミラーします
// 正となるのはメモリ上のルームストアで、こちらはベストエフォートです
// Register はNXセマンティクス（同一IDの二重登録を拒否）で、
// ルームコードのインスタンス横断の衝突チェックを兼ねます
type RoomDirectory interface {
	Register(ctx context.Context, rec models.RoomRecord, ttlSec int) error
	Touch(ctx context.Context, roomId string, ttlSec int) error
	Delete(ctx context.Context, roomId string) error
}
