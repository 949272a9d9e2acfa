// Package protocol はWebSocketで送受信するメッセージの型を定義します
// メッセージは `type` フィールドで判別するタグ付きユニオンです
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage は解読できない、または必須フィールドを欠いたメッセージを表します
// 受信側はログに残してメッセージを破棄し、接続は維持します
var ErrMalformedMessage = errors.New("malformed message")

// クライアント → コーディネーターのメッセージタイプ
const (
	TypeCreateRoom      = "create-room"
	TypeJoinRoom        = "join-room"
	TypeJoinSession     = "join-session"
	TypeRequestControl  = "request-control"
	TypeReleaseControl  = "release-control"
	TypeNavigateTo      = "navigate-to"
	TypeSyncEvent       = "sync-event"
	TypeInteraction     = "interaction"
	TypeMouseEvent      = "mouse-event"
	TypeKeyboardEvent   = "keyboard-event"
	TypeScrollEvent     = "scroll-event"
	TypeCursorUpdate    = "cursor-update"
	TypeGetParticipants = "get-participants"
	TypePing            = "ping"
)

// Envelope は受信メッセージの共通フォームです
// フィールドはメッセージタイプごとに使われるものだけが埋まります
// デバイスイベント（mouse/keyboard/scroll）の中身は解釈せず、Raw()で素通しします
type Envelope struct {
	Type      string          `json:"type"`
	RoomId    string          `json:"roomId"`
	SessionId string          `json:"sessionId"`
	Role      string          `json:"role"`
	UserName  string          `json:"userName"`
	URL       string          `json:"url"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
	Payload   json.RawMessage `json:"payload"`
	X         *float64        `json:"x"`
	Y         *float64        `json:"y"`

	raw []byte
}

// Raw は受信したままのバイト列を返します
func (e *Envelope) Raw() []byte { return e.raw }

// EventData は同期イベントのペイロードを返します
// `data` と `payload` のどちらのフィールド名も受け付けます
func (e *Envelope) EventData() json.RawMessage {
	if e.Data != nil {
		return e.Data
	}
	return e.Payload
}

// Decode は受信バイト列をEnvelopeに解読します
// 未知のタイプ、および必須フィールドの欠落はErrMalformedMessageを返します
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	switch env.Type {
	case TypeCreateRoom, TypeRequestControl, TypeReleaseControl, TypeGetParticipants, TypePing:
		// フィールドなし
	case TypeJoinRoom:
		if env.RoomId == "" {
			return nil, fmt.Errorf("%w: %s requires roomId", ErrMalformedMessage, env.Type)
		}
	case TypeJoinSession:
		if env.SessionId == "" {
			return nil, fmt.Errorf("%w: %s requires sessionId", ErrMalformedMessage, env.Type)
		}
	case TypeNavigateTo:
		if env.URL == "" {
			return nil, fmt.Errorf("%w: %s requires url", ErrMalformedMessage, env.Type)
		}
	case TypeSyncEvent, TypeInteraction:
		if env.EventType == "" {
			return nil, fmt.Errorf("%w: %s requires eventType", ErrMalformedMessage, env.Type)
		}
	case TypeMouseEvent, TypeKeyboardEvent, TypeScrollEvent:
		// デバイス固有フィールドはコーディネーターでは解釈しない
	case TypeCursorUpdate:
		if env.X == nil || env.Y == nil {
			return nil, fmt.Errorf("%w: %s requires x and y", ErrMalformedMessage, env.Type)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, env.Type)
	}

	env.raw = data
	return &env, nil
}
