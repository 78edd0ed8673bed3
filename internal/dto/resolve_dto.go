package dto

type ConversationTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

type AskRequest struct {
	Question string             `json:"question" validate:"required,max=1000"`
	Language string             `json:"language" validate:"omitempty,oneof=zh-TW en"`
	Context  []ConversationTurn `json:"context" validate:"omitempty,max=20,dive"`
}

type AskResponse struct {
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	Status       string   `json:"status"`
	Action       string   `json:"action"`
	Sources      []string `json:"sources"`
	Origin       string   `json:"origin"`
	Trace        []string `json:"trace,omitempty"`
	CacheScore   float64  `json:"cache_score,omitempty"`
	EscalationId string   `json:"escalation_id,omitempty"`
	Degraded     bool     `json:"degraded,omitempty"`
	LatencyMs    int64    `json:"latency_ms"`
}

type StatsResponse struct {
	Requests         int64   `json:"requests"`
	CacheHits        int64   `json:"cache_hits"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	DedupHits        int64   `json:"dedup_hits"`
	CacheSize        int64   `json:"cache_size"`
	AverageLatencyMs int64   `json:"average_latency_ms"`
	Escalations      int64   `json:"escalations"`
	Admissions       int64   `json:"admissions"`
}
