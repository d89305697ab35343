package models

// HealthResponse 健康检查响应结构
// @Description keeper self health check API response
type HealthResponse struct {
	Version   string  `json:"version" example:"1.0.0"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string  `json:"status" example:"UP"`
	Uptime    string  `json:"uptime" example:"1h30m45s"`
	Metrics   Metrics `json:"metrics"`
}

// Metrics 关键指标结构
// @Description key indicator snapshot reported by the health endpoint
type Metrics struct {
	TotalRequests   int64 `json:"totalRequests" example:"1000"`
	ErrorRequests   int64 `json:"errorRequests" example:"5"`
	RunningServices int   `json:"runningServices" example:"3"`
	WatchedServices int   `json:"watchedServices" example:"4"`
}
