package handlers

import (
	"net/http"

	"github.com/codebanesr/cobrowsing-ws/internal/service"
	"github.com/go-chi/chi/v5"
)

// RoomHandler はルームの参照系REST APIを処理します
// ルームの作成・参加はWebSocket経由でのみ行います
type RoomHandler struct {
	co *service.Coordinator
}

func NewRoomHandler(co *service.Coordinator) *RoomHandler { return &RoomHandler{co: co} }

// Get はルームの概要を返します（存在確認用）
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, ok := h.co.RoomStatus(roomId)
	if !ok {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"room": st})
}

// Status は接続数と開いているルーム数を返します
func (h *RoomHandler) Status(w http.ResponseWriter, r *http.Request) {
	connections, rooms := h.co.Stats()
	respondJSON(w, http.StatusOK, map[string]any{"connections": connections, "rooms": rooms})
}
