package models

// RequestInfo 描述一次 HTTP 请求，随访问日志一起输出。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent,omitempty"`
	Status     int    `json:"status"`
	LatencyMS  int64  `json:"latency_ms"`
}

// ErrorInfo 是日志里的结构化错误信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 例如 "store", "validation", "upstream"
	StatusCode int    `json:"status_code,omitempty"` // 相关的 HTTP 状态码
}
