package config

// デフォルトの画面フレームキャッシュTTL（秒）
// フレームは数秒おきに差し替わるため短くてよい
const defaultFrameTTLSec = 30

// AutomationConfig は画面ストリーミング連携の設定です
type AutomationConfig struct {
	FrameTTL int // 画面フレームのキャッシュTTL（秒）
}

func loadAutomationConfig() AutomationConfig {
	return AutomationConfig{
		FrameTTL: envInt("SCREEN_FRAME_TTL_SEC", defaultFrameTTLSec),
	}
}
