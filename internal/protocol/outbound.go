package protocol

import (
	"encoding/json"

	"github.com/codebanesr/cobrowsing-ws/internal/models"
)

// コーディネーター → クライアントのメッセージタイプ
const (
	TypeConnected          = "connected"
	TypeRoomCreated        = "room-created"
	TypeJoinedRoom         = "joined-room"
	TypeSessionJoined      = "session-joined"
	TypeError              = "error"
	TypeUserJoined         = "user-joined"
	TypeUserLeft           = "user-left"
	TypeControllerChanged  = "controller-changed"
	TypeControlReleased    = "control-released"
	TypeNavigate           = "navigate"
	TypeSyncInteraction    = "sync-interaction"
	TypeScreenUpdate       = "screen-update"
	TypeParticipantsUpdate = "participants-update"
	TypePong               = "pong"
)

// Connected は接続直後の挨拶です（接続した本人のみに送信）
type Connected struct {
	Type     string `json:"type"`
	ClientId string `json:"clientId"`
}

func NewConnected(clientId string) Connected {
	return Connected{Type: TypeConnected, ClientId: clientId}
}

// RoomCreated はcreate-roomの応答です
type RoomCreated struct {
	Type         string `json:"type"`
	RoomId       string `json:"roomId"`
	IsController bool   `json:"isController"`
}

func NewRoomCreated(roomId string, isController bool) RoomCreated {
	return RoomCreated{Type: TypeRoomCreated, RoomId: roomId, IsController: isController}
}

// JoinedRoom はjoin-roomの応答です
// currentUrlは遅れて参加したクライアントが現在の状態に追いつくためのものです
type JoinedRoom struct {
	Type         string `json:"type"`
	RoomId       string `json:"roomId"`
	IsController bool   `json:"isController"`
	UserCount    int    `json:"userCount"`
	CurrentURL   string `json:"currentUrl,omitempty"`
}

func NewJoinedRoom(roomId string, isController bool, userCount int, currentURL string) JoinedRoom {
	return JoinedRoom{Type: TypeJoinedRoom, RoomId: roomId, IsController: isController, UserCount: userCount, CurrentURL: currentURL}
}

// SessionJoined はjoin-sessionの応答です
type SessionJoined struct {
	Type         string               `json:"type"`
	SessionId    string               `json:"sessionId"`
	Role         string               `json:"role"`
	IsController bool                 `json:"isController"`
	UserCount    int                  `json:"userCount"`
	CurrentURL   string               `json:"currentUrl,omitempty"`
	Participants []models.Participant `json:"participants"`
}

func NewSessionJoined(sessionId, role string, isController bool, userCount int, currentURL string, participants []models.Participant) SessionJoined {
	return SessionJoined{
		Type:         TypeSessionJoined,
		SessionId:    sessionId,
		Role:         role,
		IsController: isController,
		UserCount:    userCount,
		CurrentURL:   currentURL,
		Participants: participants,
	}
}

// ErrorMessage は要求元だけに返すエラー通知です
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

// UserJoined は参加通知です（参加者本人を除くルーム全体に送信）
type UserJoined struct {
	Type      string `json:"type"`
	ClientId  string `json:"clientId"`
	UserName  string `json:"userName,omitempty"`
	UserCount int    `json:"userCount"`
}

func NewUserJoined(clientId, userName string, userCount int) UserJoined {
	return UserJoined{Type: TypeUserJoined, ClientId: clientId, UserName: userName, UserCount: userCount}
}

// UserLeft は退出通知です（残りのメンバー全員に送信）
type UserLeft struct {
	Type      string `json:"type"`
	ClientId  string `json:"clientId"`
	UserCount int    `json:"userCount"`
}

func NewUserLeft(clientId string, userCount int) UserLeft {
	return UserLeft{Type: TypeUserLeft, ClientId: clientId, UserCount: userCount}
}

// ControllerChanged はコントローラーの交代通知です（新コントローラーを含む全員に送信）
type ControllerChanged struct {
	Type         string `json:"type"`
	ControllerId string `json:"controllerId"`
}

func NewControllerChanged(controllerId string) ControllerChanged {
	return ControllerChanged{Type: TypeControllerChanged, ControllerId: controllerId}
}

// ControlReleased はコントロール解放通知です
// controllerIdは常にnullで送信します
type ControlReleased struct {
	Type         string  `json:"type"`
	ControllerId *string `json:"controllerId"`
}

func NewControlReleased() ControlReleased {
	return ControlReleased{Type: TypeControlReleased}
}

// SyncEvent はコントローラー発の同期イベントの転送フォームです
// sync-eventとsync-interactionの両方でこの形を使います
// dataの中身はコーディネーターでは解釈しません
type SyncEvent struct {
	Type      string          `json:"type"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func NewSyncEvent(msgType, eventType string, data json.RawMessage) SyncEvent {
	return SyncEvent{Type: msgType, EventType: eventType, Data: data}
}

// Navigate はナビゲーション通知です
type Navigate struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func NewNavigate(url string) Navigate {
	return Navigate{Type: TypeNavigate, URL: url}
}

// ScreenUpdate は自動操縦ブラウザが生成した画面キャプチャの配信フォームです
type ScreenUpdate struct {
	Type       string `json:"type"`
	Screenshot string `json:"screenshot"` // data URI
	Timestamp  int64  `json:"timestamp"`
}

func NewScreenUpdate(screenshot string, timestamp int64) ScreenUpdate {
	return ScreenUpdate{Type: TypeScreenUpdate, Screenshot: screenshot, Timestamp: timestamp}
}

// CursorUpdate はカーソル位置の共有通知です（送信者を除くルーム全体に送信）
type CursorUpdate struct {
	Type     string  `json:"type"`
	UserId   string  `json:"userId"`
	UserName string  `json:"userName,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func NewCursorUpdate(userId, userName string, x, y float64) CursorUpdate {
	return CursorUpdate{Type: TypeCursorUpdate, UserId: userId, UserName: userName, X: x, Y: y}
}

// ParticipantsUpdate はget-participantsへの応答です
type ParticipantsUpdate struct {
	Type         string               `json:"type"`
	Participants []models.Participant `json:"participants"`
	UserCount    int                  `json:"userCount"`
}

func NewParticipantsUpdate(participants []models.Participant, userCount int) ParticipantsUpdate {
	return ParticipantsUpdate{Type: TypeParticipantsUpdate, Participants: participants, UserCount: userCount}
}

// Pong はpingへの応答です
type Pong struct {
	Type string `json:"type"`
}

func NewPong() Pong {
	return Pong{Type: TypePong}
}
