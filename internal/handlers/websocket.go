package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/codebanesr/cobrowsing-ws/internal/protocol"
	"github.com/codebanesr/cobrowsing-ws/internal/service"
	"github.com/gorilla/websocket"
)

const (
	// 送信キューの深さ。あふれた分は破棄します（fire-and-forget）
	sendQueueSize = 256
	// 1回の書き込みに許す時間。遅い受信者の切り離し用
	writeTimeout = 10 * time.Second
)

// WebSocketHandler はWebSocket接続を処理するハンドラーです
// 受信メッセージの解読と、コーディネーターへの振り分けだけを担当します
type WebSocketHandler struct {
	co       *service.Coordinator
	upgrader websocket.Upgrader
}

// NewWebSocketHandler は新しいWebSocketHandlerを作成します
func NewWebSocketHandler(co *service.Coordinator) *WebSocketHandler {
	return &WebSocketHandler{
		co: co,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 本番環境では適切なOriginチェックを実装してください
				return true
			},
		},
	}
}

// wsClient は1つのWebSocket接続の送信側を包みます
// gorilla/websocketは書き込みが単一goroutineに限られるため、
// Sendはキューへの投入のみを行い、writePumpが順に書き出します
type wsClient struct {
	conn *websocket.Conn
	out  chan []byte
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, out: make(chan []byte, sendQueueSize)}
}

// Send はメッセージを送信キューに積みます
// キューが満杯の場合は破棄します（1受信者の遅延が送信元を塞がないように）
func (c *wsClient) Send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to encode outbound message: %v", err)
		return
	}
	select {
	case c.out <- b:
	default:
		log.Printf("send queue full, dropping message")
	}
}

func (c *wsClient) writePump(ctx context.Context) {
	for {
		select {
		case b := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// HandleWebSocket はWebSocket接続を処理します
// 接続後、以下の処理を行います:
// 1. HTTPからWebSocketへのアップグレード
// 2. クライアントIDの採番とconnected挨拶の送信
// 3. メッセージ受信ループの開始
// 4. 切断時の自動退出処理とクリーンアップ
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	wc := newWSClient(conn)
	ctx, cancel := context.WithCancel(r.Context())
	go wc.writePump(ctx)

	client := h.co.Connect(wc)
	wc.Send(protocol.NewConnected(client.ID))
	log.Printf("WebSocket connected: clientId=%s", client.ID)

	defer func() {
		// 切断は退出の通常のトリガーであり、エラーではない
		h.co.Disconnect(context.Background(), client)
		cancel()
		conn.Close()
		log.Printf("WebSocket disconnected: clientId=%s", client.ID)
	}()

	// メッセージ受信ループ
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (clientId=%s): %v", client.ID, err)
			}
			break
		}
		h.dispatch(r.Context(), client, wc, data)
	}
}

// dispatch は受信メッセージを解読してコーディネーターへ振り分けます
// 解読できないメッセージはログに残して破棄し、接続は維持します
func (h *WebSocketHandler) dispatch(ctx context.Context, client *service.Client, wc *wsClient, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Printf("discarding message (clientId=%s): %v", client.ID, err)
		return
	}

	switch env.Type {
	case protocol.TypeCreateRoom:
		h.writeServiceError(wc, h.co.CreateRoom(ctx, client))
	case protocol.TypeJoinRoom:
		h.writeServiceError(wc, h.co.JoinRoom(ctx, client, env.RoomId))
	case protocol.TypeJoinSession:
		h.writeServiceError(wc, h.co.JoinSession(ctx, client, env.SessionId, env.Role, env.UserName))
	case protocol.TypeRequestControl:
		h.writeServiceError(wc, h.co.RequestControl(client))
	case protocol.TypeReleaseControl:
		h.co.ReleaseControl(client)
	case protocol.TypeNavigateTo:
		h.writeServiceError(wc, h.co.NavigateTo(client, env.URL))
	case protocol.TypeSyncEvent, protocol.TypeInteraction:
		// 非コントローラー発のイベントは黙って破棄される（想定内の競合）
		h.co.ForwardSync(client, env.Type, env.EventType, env.EventData())
	case protocol.TypeMouseEvent, protocol.TypeKeyboardEvent, protocol.TypeScrollEvent:
		h.co.ForwardDevice(ctx, client, env.Type, env.Raw())
	case protocol.TypeCursorUpdate:
		h.co.Cursor(client, *env.X, *env.Y)
	case protocol.TypeGetParticipants:
		h.writeServiceError(wc, h.co.Participants(client))
	case protocol.TypePing:
		// ping/pongで接続を維持
		wc.Send(protocol.NewPong())
	}
}

// writeServiceError はサービス層のエラーをerrorメッセージとして要求元へ返します
func (h *WebSocketHandler) writeServiceError(wc *wsClient, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrRoomAlreadyExists),
		errors.Is(err, service.ErrRoleAlreadyTaken),
		errors.Is(err, service.ErrRoomIDExhausted),
		errors.Is(err, service.ErrNotInRoom),
		errors.Is(err, service.ErrNavigationNotAllowed):
		wc.Send(protocol.NewError(err.Error()))
	default:
		log.Printf("unexpected service error: %v", err)
		wc.Send(protocol.NewError("internal error"))
	}
}
