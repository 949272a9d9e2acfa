package http

import (
	"net/http"

	"github.com/codebanesr/cobrowsing-ws/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(rh *handlers.RoomHandler, sh *handlers.ScreenHandler, wsHandler *handlers.WebSocketHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/api/v1/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/api/v1/status", rh.Status)

	r.Route("/api/v1/room", func(r chi.Router) {
		r.Get("/{roomId}", rh.Get)
		// 画面フレーム: POSTは自動操縦ブラウザ（外部コラボレーター）から
		r.Get("/{roomId}/screen", sh.Get)
		r.Post("/{roomId}/screen", sh.Upload)
	})

	// WebSocketエンドポイント（ルーム操作はすべてここを通る）
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}
