// Package idgen はクライアントIDとルームコードの生成を担当します
package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewClientID は接続ごとに一意なクライアントIDを生成します
func NewClientID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// NewRoomCode は8文字のルームコードを生成します
// UUIDv4の先頭8文字を切り出します（衝突チェックは呼び出し側で行う）
func NewRoomCode() string {
	return uuid.NewString()[:8]
}
