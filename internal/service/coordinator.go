package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/codebanesr/cobrowsing-ws/internal/idgen"
	"github.com/codebanesr/cobrowsing-ws/internal/models"
	"github.com/codebanesr/cobrowsing-ws/internal/protocol"
	"github.com/codebanesr/cobrowsing-ws/internal/repo"
)

// ルームコード生成の最大リトライ回数
const maxCodeAttempts = 8

// InputDriver はコントローラーの入力イベントを外部の自動操縦ブラウザへ渡す境界です
// コーディネーターはペイロードを解釈せず、そのまま引き渡します
type InputDriver interface {
	Input(ctx context.Context, roomId, kind string, payload []byte) error
}

// Coordinator はルーム・コントロールトークン・ファンアウトをまとめる調停役です
// ゲートウェイ（WebSocketハンドラー）から呼ばれます
type Coordinator struct {
	store    *Store
	registry *Registry
	dir      repo.RoomDirectory
	driver   InputDriver // nil可（外部ドライバ未接続）
	ttlSec   int
}

// NewCoordinator は新しいCoordinatorを作成します
// driverはnilを許容します
func NewCoordinator(store *Store, registry *Registry, dir repo.RoomDirectory, driver InputDriver, ttlSec int) *Coordinator {
	return &Coordinator{store: store, registry: registry, dir: dir, driver: driver, ttlSec: ttlSec}
}

// Connect は新しい接続にIDを採番して登録します
// 接続の挨拶（connected）の送信はゲートウェイ側で行います
func (co *Coordinator) Connect(sender Sender) *Client {
	c := &Client{ID: idgen.NewClientID(), sender: sender}
	co.registry.Add(c)
	return c
}

// Disconnect は接続の終了を処理します
// 参加中ルームからの退出シーケンスを実行したあと台帳から削除します
// 切断はエラーではなく、退出の通常のトリガーです
func (co *Coordinator) Disconnect(ctx context.Context, c *Client) {
	co.leaveCurrent(ctx, c)
	co.registry.Remove(c.ID)
}

// CreateRoom は新しいルームコードを採番してルームを作成し、作成者を参加させます
// コード衝突時は再生成します（最大maxCodeAttempts回、超えたらErrRoomIDExhausted）
// 作成者は最初からコントローラーになります
func (co *Coordinator) CreateRoom(ctx context.Context, c *Client) error {
	co.leaveCurrent(ctx, c)

	var room *Room
	for i := 0; i < maxCodeAttempts; i++ {
		code := idgen.NewRoomCode()

		// 先にローカルへ作成する。ディレクトリに中身のないコードを残さないため
		r, err := co.store.Create(code, ModeCode)
		if err != nil {
			continue
		}

		rec := models.RoomRecord{RoomId: code, Mode: ModeCode, CreatedAt: time.Now().Unix()}
		if err := co.dir.Register(ctx, rec, co.ttlSec); err != nil {
			if errors.Is(err, repo.ErrRoomTaken) {
				// 他インスタンスとの衝突。ローカルの空ルームを取り下げて再生成
				co.store.RemoveIfEmpty(code)
				continue
			}
			// ディレクトリは正ではないので、登録失敗でもローカルでは続行する
			log.Printf("room directory register failed (roomId=%s): %v", code, err)
		}

		room = r
		break
	}
	if room == nil {
		return ErrRoomIDExhausted
	}

	res, err := room.Join(co.memberOf(c), true)
	if err != nil {
		return err
	}
	c.room = room
	c.sender.Send(protocol.NewRoomCreated(room.ID(), res.IsController))
	log.Printf("room created: roomId=%s, clientId=%s", room.ID(), c.ID)
	return nil
}

// JoinRoom は既存のルームへの参加を処理します
// ルームが存在しない場合はErrRoomNotFoundを返します（作成はしない）
func (co *Coordinator) JoinRoom(ctx context.Context, c *Client, roomId string) error {
	roomId = strings.TrimSpace(roomId)

	co.leaveCurrent(ctx, c)

	room, ok := co.store.Get(roomId)
	if !ok {
		return ErrRoomNotFound
	}

	res, err := room.Join(co.memberOf(c), false)
	if err != nil {
		return err
	}
	c.room = room
	c.sender.Send(protocol.NewJoinedRoom(roomId, res.IsController, res.UserCount, res.CurrentURL))

	if err := co.dir.Touch(ctx, roomId, co.ttlSec); err != nil {
		log.Printf("room directory touch failed (roomId=%s): %v", roomId, err)
	}
	log.Printf("client joined room: roomId=%s, clientId=%s, userCount=%d", roomId, c.ID, res.UserCount)
	return nil
}

// JoinSession はセッション型ルームへの参加を処理します（なければ作成）
// teacherロールはルームに1人だけ許可され、参加と同時にコントローラーになります
// ロールが占有済みの場合はErrRoleAlreadyTakenを返し、状態は変更しません
func (co *Coordinator) JoinSession(ctx context.Context, c *Client, sessionId, role, userName string) error {
	sessionId = strings.TrimSpace(sessionId)
	if role == "" {
		role = RoleStudent
	}

	co.leaveCurrent(ctx, c)

	room, created, err := co.store.GetOrCreate(sessionId, ModeSession)
	if err != nil {
		return err
	}

	// 拒否された参加はクライアントに何も残さない。ラベルの確定は参加成立後
	m := &Member{ID: c.ID, UserName: userName, Role: role, Sender: c.sender}
	res, err := room.Join(m, role == RoleTeacher)
	if err != nil {
		if created {
			co.store.RemoveIfEmpty(sessionId)
		}
		return err
	}
	c.UserName = userName
	c.Role = role
	c.room = room
	c.sender.Send(protocol.NewSessionJoined(sessionId, role, res.IsController, res.UserCount, res.CurrentURL, res.Participants))

	if created {
		rec := models.RoomRecord{RoomId: sessionId, Mode: ModeSession, CreatedAt: time.Now().Unix()}
		if err := co.dir.Register(ctx, rec, co.ttlSec); err != nil && !errors.Is(err, repo.ErrRoomTaken) {
			log.Printf("room directory register failed (roomId=%s): %v", sessionId, err)
		}
	} else if err := co.dir.Touch(ctx, sessionId, co.ttlSec); err != nil {
		log.Printf("room directory touch failed (roomId=%s): %v", sessionId, err)
	}

	log.Printf("%s %q joined session: sessionId=%s, clientId=%s", role, userName, sessionId, c.ID)
	return nil
}

// RequestControl はコントロールトークンの取得要求を処理します
func (co *Coordinator) RequestControl(c *Client) error {
	if c.room == nil {
		return ErrNotInRoom
	}
	c.room.RequestControl(c.ID)
	return nil
}

// ReleaseControl はコントロールトークンの解放要求を処理します
// ルーム未参加や非コントローラーからの要求は黙って無視します
func (co *Coordinator) ReleaseControl(c *Client) {
	if c.room == nil {
		return
	}
	c.room.ReleaseControl(c.ID)
}

// ForwardSync はコントローラー発の同期イベントの転送を処理します
// inboundTypeに応じて出力タイプを選びます（sync-event / interaction → sync-interaction）
// ルーム未参加・非コントローラーのイベントは黙って破棄します
func (co *Coordinator) ForwardSync(c *Client, inboundType, eventType string, data json.RawMessage) {
	if c.room == nil {
		return
	}
	outType := protocol.TypeSyncEvent
	if inboundType == protocol.TypeInteraction {
		outType = protocol.TypeSyncInteraction
	}
	c.room.ForwardSync(c.ID, outType, eventType, data)
}

// ForwardDevice はデバイスイベント（mouse/keyboard/scroll）の転送を処理します
// 転送が成立した場合のみ、外部ドライバが接続されていればそちらにも引き渡します
func (co *Coordinator) ForwardDevice(ctx context.Context, c *Client, kind string, raw []byte) {
	if c.room == nil {
		return
	}
	if !c.room.ForwardRaw(c.ID, raw) {
		return
	}
	if co.driver != nil {
		if err := co.driver.Input(ctx, c.room.ID(), kind, raw); err != nil {
			log.Printf("automation input failed (roomId=%s, kind=%s): %v", c.room.ID(), kind, err)
		}
	}
}

// NavigateTo は共有URLの変更要求を処理します
func (co *Coordinator) NavigateTo(c *Client, url string) error {
	if c.room == nil {
		return ErrNotInRoom
	}
	return c.room.Navigate(c.ID, url)
}

// Cursor はカーソル位置の共有を処理します
func (co *Coordinator) Cursor(c *Client, x, y float64) {
	if c.room == nil {
		return
	}
	c.room.Cursor(c.ID, x, y)
}

// Participants は参加者一覧の再送要求を処理します
func (co *Coordinator) Participants(c *Client) error {
	if c.room == nil {
		return ErrNotInRoom
	}
	ps, n := c.room.Participants()
	c.sender.Send(protocol.NewParticipantsUpdate(ps, n))
	return nil
}

// PushFrame は画面キャプチャをルーム全体へ配信します
// ルームが存在しない場合はfalseを返します
func (co *Coordinator) PushFrame(roomId, screenshot string, timestamp int64) bool {
	room, ok := co.store.Get(roomId)
	if !ok {
		return false
	}
	room.PushScreen(screenshot, timestamp)
	return true
}

// RoomStatus はルームの概要を返します
func (co *Coordinator) RoomStatus(roomId string) (models.RoomStatus, bool) {
	room, ok := co.store.Get(roomId)
	if !ok {
		return models.RoomStatus{}, false
	}
	return room.Status(), true
}

// Stats は接続数と開いているルーム数を返します
func (co *Coordinator) Stats() (connections, rooms int) {
	return co.registry.Count(), co.store.Count()
}

func (co *Coordinator) memberOf(c *Client) *Member {
	return &Member{ID: c.ID, UserName: c.UserName, Role: c.Role, Sender: c.sender}
}

// leaveCurrent は参加中のルームからの退出シーケンスを実行します
// 順序は固定: メンバー削除（コントロール解放・user-left通知を含む）→ 空ルームの即時削除
func (co *Coordinator) leaveCurrent(ctx context.Context, c *Client) {
	room := c.room
	if room == nil {
		return
	}
	c.room = nil
	// セッションで付与されたラベルは退出と同時に失効する
	c.UserName = ""
	c.Role = ""

	empty := room.Leave(c.ID)
	if empty {
		co.store.RemoveIfEmpty(room.ID())
		if err := co.dir.Delete(ctx, room.ID()); err != nil {
			log.Printf("room directory delete failed (roomId=%s): %v", room.ID(), err)
		}
		log.Printf("room removed (empty): roomId=%s", room.ID())
	}
}
