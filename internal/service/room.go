// Package service はルームとコントロールトークンの調停ロジックを担当します
// ルームの状態変更とそれに伴うブロードキャストの判定は、
// すべてルームごとのロックの下で行います（ルーム間の直列化は不要）
package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/codebanesr/cobrowsing-ws/internal/models"
	"github.com/codebanesr/cobrowsing-ws/internal/protocol"
)

// ルームIDの割り当て方式
const (
	ModeCode    = "code"    // サーバー生成の8文字ルームコード
	ModeSession = "session" // クライアント指定のセッションID
)

// ロールラベル
// teacherは1ルームに1人だけ許可され、ナビゲーション権限を持ちます
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// インメモリに保持する操作イベントの上限（リプレイログは持たない方針のため控えめ）
const maxInteractions = 500

// Sender はルームメンバーへの送信口です
// 実装は送信キューへの投入のみを行い、ブロックもエラーも返しません
type Sender interface {
	Send(v any)
}

// Member はルームに参加している1つの接続を表します
type Member struct {
	ID       string
	UserName string
	Role     string
	Sender   Sender
}

// JoinResult は参加確認応答に必要なスナップショットです
type JoinResult struct {
	UserCount    int
	IsController bool
	CurrentURL   string
	Participants []models.Participant
}

type interactionRecord struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Room は1つのルームの状態を保持します
// members・controllerId・currentURLの読み書きはすべてmuの下で行います
// controllerIdが空文字のときはコントローラー不在を表します
type Room struct {
	id   string
	mode string

	mu           sync.Mutex
	closed       bool
	members      map[string]*Member
	order        []string // 参加順（ファンアウトの決定的な順序）
	controllerId string
	currentURL   string
	interactions []interactionRecord
	createdAt    time.Time
}

func newRoom(id, mode string) *Room {
	return &Room{
		id:        id,
		mode:      mode,
		members:   make(map[string]*Member),
		createdAt: time.Now(),
	}
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Mode() string { return r.mode }

// Len は現在のメンバー数を返します
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Join はメンバーをルームに追加します
// 処理の流れ:
// 1. teacherロールの単独性チェック（失敗時は状態を変更しない）
// 2. メンバー追加
// 3. takeControlならコントロールトークンを取得
// 4. 他のメンバーにuser-joinedを通知（参加者本人は除く）
// 戻り値のスナップショットは参加確認応答（joined-room等）に使います
func (r *Room) Join(m *Member, takeControl bool) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		// 最後のメンバーの退出と競合した場合。ルームはもう存在しない扱い
		return JoinResult{}, ErrRoomNotFound
	}
	if m.Role == RoleTeacher {
		for _, existing := range r.members {
			if existing.Role == RoleTeacher {
				return JoinResult{}, ErrRoleAlreadyTaken
			}
		}
	}

	if _, ok := r.members[m.ID]; !ok {
		r.order = append(r.order, m.ID)
	}
	r.members[m.ID] = m

	if takeControl {
		if len(r.members) == 1 {
			// 最初のメンバーは通知なしでコントローラーになる
			r.controllerId = m.ID
		} else {
			r.seizeControlLocked(m.ID)
		}
	}

	res := JoinResult{
		UserCount:    len(r.members),
		IsController: r.controllerId == m.ID,
		CurrentURL:   r.currentURL,
		Participants: r.participantsLocked(),
	}

	r.broadcastLocked(protocol.NewUserJoined(m.ID, m.UserName, len(r.members)), m.ID)
	return res, nil
}

// Leave はメンバーをルームから取り除きます
// 順序は固定: メンバー削除 → コントロール解放通知 → user-left通知
// この順序を崩すと「controllerIdは常に現メンバーを指す」という不変条件が壊れます
// 最後のメンバーが抜けた場合はルームを閉じ、emptyにtrueを返します
func (r *Room) Leave(id string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return len(r.members) == 0
	}

	delete(r.members, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.controllerId == id {
		r.controllerId = ""
		r.broadcastLocked(protocol.NewControlReleased(), "")
	}

	r.broadcastLocked(protocol.NewUserLeft(id, len(r.members)), "")

	if len(r.members) == 0 {
		r.closed = true
		return true
	}
	return false
}

// RequestControl はコントロールトークンの取得要求を処理します
// 後勝ち（last-request-wins）: 現コントローラーから奪い、交代を全員に通知します
// すでに要求者がコントローラーの場合は何もしません
func (r *Room) RequestControl(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return
	}
	if r.controllerId == id {
		return
	}
	r.seizeControlLocked(id)
}

// seizeControlLocked はコントロールトークンをidへ移します
// 旧コントローラーには先にcontrol-releasedを単独送信し、
// そのあと新コントローラーを含む全員にcontroller-changedを通知します
func (r *Room) seizeControlLocked(id string) {
	if prev := r.controllerId; prev != "" && prev != id {
		if m, ok := r.members[prev]; ok {
			m.Sender.Send(protocol.NewControlReleased())
		}
	}
	r.controllerId = id
	r.broadcastLocked(protocol.NewControllerChanged(id), "")
}

// ReleaseControl はコントロールトークンの解放を処理します
// 要求者がコントローラーでない場合は黙って無視します
// （すでにコントロールが移った後の解放要求は想定内の競合であり、エラーではない）
func (r *Room) ReleaseControl(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.controllerId != id {
		return
	}
	r.controllerId = ""
	r.broadcastLocked(protocol.NewControlReleased(), "")
}

// ForwardSync はコントローラー発の同期イベントを他のメンバーへ転送します
// 送信者がコントローラーでない場合はメッセージを破棄します（エラーも返さない）
// dataの中身は解釈しません
func (r *Room) ForwardSync(senderId, msgType, eventType string, data json.RawMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.controllerId != senderId {
		return false
	}

	r.interactions = append(r.interactions, interactionRecord{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if len(r.interactions) > maxInteractions {
		r.interactions = r.interactions[len(r.interactions)-maxInteractions:]
	}

	r.broadcastLocked(protocol.NewSyncEvent(msgType, eventType, data), senderId)
	return true
}

// ForwardRaw はデバイスイベントを受信したままの形で他のメンバーへ転送します
// 送信者がコントローラーでない場合は破棄します
func (r *Room) ForwardRaw(senderId string, raw []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.controllerId != senderId {
		return false
	}
	r.broadcastLocked(json.RawMessage(raw), senderId)
	return true
}

// Navigate は共有URLの変更を処理します
// teacherロールか現コントローラーだけが実行できます
func (r *Room) Navigate(senderId, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[senderId]
	if !ok {
		return ErrRoomNotFound
	}
	if m.Role != RoleTeacher && r.controllerId != senderId {
		return ErrNavigationNotAllowed
	}

	r.currentURL = url
	r.broadcastLocked(protocol.NewNavigate(url), senderId)
	return nil
}

// Cursor はカーソル位置を他のメンバーへ共有します
// コントローラーに限らず、どのメンバーでも送信できます
func (r *Room) Cursor(senderId string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[senderId]
	if !ok {
		return
	}
	r.broadcastLocked(protocol.NewCursorUpdate(senderId, m.UserName, x, y), senderId)
}

// PushScreen は画面キャプチャをルーム全体へ配信します
// 発信元は外部の自動操縦ブラウザであり、除外するメンバーはいません
func (r *Room) PushScreen(screenshot string, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(protocol.NewScreenUpdate(screenshot, timestamp), "")
}

// Participants は現在の参加者一覧のスナップショットを返します
func (r *Room) Participants() ([]models.Participant, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantsLocked(), len(r.members)
}

// Status はREST APIで返すルーム概要を返します
func (r *Room) Status() models.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomStatus{
		RoomId:        r.id,
		Mode:          r.mode,
		UserCount:     len(r.members),
		HasController: r.controllerId != "",
		CurrentURL:    r.currentURL,
		CreatedAt:     r.createdAt.Unix(),
	}
}

func (r *Room) participantsLocked() []models.Participant {
	out := make([]models.Participant, 0, len(r.members))
	for _, id := range r.order {
		m := r.members[id]
		out = append(out, models.Participant{
			ClientId:     m.ID,
			UserName:     m.UserName,
			Role:         m.Role,
			IsController: r.controllerId == m.ID,
		})
	}
	return out
}

// broadcastLocked は現在のメンバー全員（excludeIdを除く）へメッセージを送ります
// 受信者の集合は呼び出し時点のメンバーで確定します
// 送信はキュー投入のみで、遅い受信者が他の配信を妨げることはありません
func (r *Room) broadcastLocked(v any, excludeId string) {
	for _, id := range r.order {
		if id == excludeId {
			continue
		}
		r.members[id].Sender.Send(v)
	}
}
