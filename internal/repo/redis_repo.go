package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codebanesr/cobrowsing-ws/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisRoomDirectory はRoomDirectoryのRedis実装です
type RedisRoomDirectory struct{ rdb *redis.Client }

func NewRedisRoomDirectory(rdb *redis.Client) *RedisRoomDirectory {
	return &RedisRoomDirectory{rdb: rdb}
}

func roomKey(id string) string {
	return fmt.Sprintf("rooms:%s", id)
}

func sec(v int) time.Duration {
	return time.Duration(v) * time.Second
}

// Register はルームをNXで登録します
// すでに登録済みの場合はErrRoomTakenを返します（ルームコードの衝突検出に使用）
func (d *RedisRoomDirectory) Register(ctx context.Context, rec models.RoomRecord, ttlSec int) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := d.rdb.SetArgs(ctx, roomKey(rec.RoomId), b, redis.SetArgs{Mode: "NX", TTL: sec(ttlSec)}).Result()
	if err != nil {
		return err
	}
	if ok != "OK" {
		return ErrRoomTaken
	}
	return nil
}

// Touch はルームエントリのTTLを延長します
func (d *RedisRoomDirectory) Touch(ctx context.Context, roomId string, ttlSec int) error {
	return d.rdb.Expire(ctx, roomKey(roomId), sec(ttlSec)).Err()
}

// Delete はルームエントリと、そのルームの画面フレームキャッシュをまとめて削除します
func (d *RedisRoomDirectory) Delete(ctx context.Context, roomId string) error {
	// Luaスクリプトでアトミックに処理
	script := `
		local room_key = KEYS[1]
		local frame_key = KEYS[2]
		local frame_ts_key = KEYS[3]

		redis.call('DEL', room_key, frame_key, frame_ts_key)

		return 'OK'
	`

	return d.rdb.Eval(ctx, script, []string{roomKey(roomId), frameKey(roomId), frameTsKey(roomId)}).Err()
}
