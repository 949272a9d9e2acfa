package repo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisFrameRepo は画面フレームをRedisに保存します
// ルームごとに最新の1枚だけを保持します
type RedisFrameRepo struct {
	rdb *redis.Client
}

func NewRedisFrameRepo(rdb *redis.Client) *RedisFrameRepo {
	return &RedisFrameRepo{rdb: rdb}
}

func frameKey(roomId string) string {
	return fmt.Sprintf("frames:%s", roomId)
}

func frameTsKey(roomId string) string {
	return fmt.Sprintf("frames:%s:ts", roomId)
}

// SaveFrame はフレームデータとタイムスタンプを保存します
func (r *RedisFrameRepo) SaveFrame(ctx context.Context, roomId string, data []byte, timestamp int64, ttlSec int) error {
	d := sec(ttlSec)
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, frameKey(roomId), data, d)
	pipe.Set(ctx, frameTsKey(roomId), timestamp, d)
	_, err := pipe.Exec(ctx)
	return err
}

// GetFrame は最新のフレームデータとタイムスタンプを取得します
func (r *RedisFrameRepo) GetFrame(ctx context.Context, roomId string) ([]byte, int64, error) {
	data, err := r.rdb.Get(ctx, frameKey(roomId)).Bytes()
	if err == redis.Nil { // データがない
		return nil, 0, ErrFrameNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	ts, err := r.rdb.Get(ctx, frameTsKey(roomId)).Int64()
	if err != nil && err != redis.Nil {
		return nil, 0, err
	}
	return data, ts, nil
}
