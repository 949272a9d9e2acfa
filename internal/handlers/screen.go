package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/codebanesr/cobrowsing-ws/internal/repo"
	"github.com/codebanesr/cobrowsing-ws/internal/service"
	"github.com/go-chi/chi/v5"
)

// ScreenHandler は画面フレームのアップロードと取得を処理します
// アップロード元は外部の自動操縦ブラウザ（ヘッドレスドライバ）です
type ScreenHandler struct {
	co     *service.Coordinator
	frames repo.FrameRepo
	ttlSec int
}

func NewScreenHandler(co *service.Coordinator, frames repo.FrameRepo, ttlSec int) *ScreenHandler {
	return &ScreenHandler{co: co, frames: frames, ttlSec: ttlSec}
}

type uploadFrameRequest struct {
	Screenshot string `json:"screenshot"` // data URI
	Timestamp  int64  `json:"timestamp"`
}

// Upload はフレームを受け取ってキャッシュし、ルーム全体へscreen-updateを配信します
func (h *ScreenHandler) Upload(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in uploadFrameRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Screenshot == "" {
		respondError(w, http.StatusBadRequest, "screenshot required")
		return
	}
	if in.Timestamp == 0 {
		in.Timestamp = time.Now().UnixMilli()
	}

	if _, ok := h.co.RoomStatus(roomId); !ok {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}

	if err := h.frames.SaveFrame(r.Context(), roomId, []byte(in.Screenshot), in.Timestamp, h.ttlSec); err != nil {
		log.Printf("Save frame error (roomId=%s): %v", roomId, err)
		respondError(w, http.StatusInternalServerError, "failed to save frame")
		return
	}
	h.co.PushFrame(roomId, in.Screenshot, in.Timestamp)

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Get は保存されている最新のフレームを返します
func (h *ScreenHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, ts, err := h.frames.GetFrame(r.Context(), roomId)
	if err != nil {
		if errors.Is(err, repo.ErrFrameNotFound) {
			respondError(w, http.StatusNotFound, "no frame available")
			return
		}
		log.Printf("Get frame error (roomId=%s): %v", roomId, err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"screenshot": string(data), "timestamp": ts})
}
