// Package models はアプリケーションで使用するデータ構造を定義します
package models

// Participant はルームに参加しているクライアントの情報を表します
type Participant struct {
	ClientId     string `json:"clientId"`           // 接続ごとに採番される一意な識別子
	UserName     string `json:"userName,omitempty"` // 表示名（join時に指定された場合のみ）
	Role         string `json:"role,omitempty"`     // ロールラベル（セッション型ルームのみ）
	IsController bool   `json:"isController"`       // コントロールトークンの保持者かどうか
}

// RoomStatus はREST APIで返すルームの概要を表します
type RoomStatus struct {
	RoomId        string `json:"roomId"`               // ルームの一意な識別子
	Mode          string `json:"mode"`                 // ID割り当て方式（code / session）
	UserCount     int    `json:"userCount"`            // 現在の参加者数
	HasController bool   `json:"hasController"`        // コントローラーが存在するか
	CurrentURL    string `json:"currentUrl,omitempty"` // 最後に共有されたURL
	CreatedAt     int64  `json:"createdAt"`            // ルーム作成日時（Unixタイムスタンプ）
}

// RoomRecord はRedisのルームディレクトリに保存するメタデータです
type RoomRecord struct {
	RoomId    string `json:"roomId"`    // ルームの一意な識別子
	Mode      string `json:"mode"`      // ID割り当て方式（code / session）
	CreatedAt int64  `json:"createdAt"` // ルーム作成日時（Unixタイムスタンプ）
}
