package controllers

import (
	"time"

	"clara-keeper/internal/env"
	"clara-keeper/internal/models"
	"clara-keeper/services"

	"github.com/gin-gonic/gin"
)

type APIController struct {
	keeper    *services.Keeper
	startTime time.Time
}

/**
 * Create new API controller instance
 * @param {*services.Keeper} keeper - Wired application components
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(keeper *services.Keeper) *APIController {
	return &APIController{
		keeper:    keeper,
		startTime: time.Now(),
	}
}

func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/clara/api/v1/state", a.State)
}

// @Summary 业务就绪探针
// @Description Reports daemon version, uptime and key request counters
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	running := 0
	all := a.keeper.Registry.All()
	for _, desc := range all {
		if status, ok := a.keeper.Monitor.LastStatus(desc.ID); ok && status.Running {
			running++
		}
	}
	c.JSON(200, models.HealthResponse{
		Version:   env.Version,
		StartTime: a.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(a.startTime).Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests:   services.GetTotalRequestCount(),
			ErrorRequests:   services.GetTotalErrorCount(),
			RunningServices: running,
			WatchedServices: len(all),
		},
	})
}

// @Summary 查询监控调度状态
// @Description Last observed status and polling state per managed service
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /clara/api/v1/state [get]
func (a *APIController) State(c *gin.Context) {
	type serviceState struct {
		Mode       models.DeployMode     `json:"mode"`
		Polling    bool                  `json:"polling"`
		LastStatus *models.ServiceStatus `json:"lastStatus,omitempty"`
	}
	states := make(map[string]serviceState, 4)
	for _, desc := range a.keeper.Registry.All() {
		cfg := a.keeper.Store.GetConfig(desc.ID)
		st := serviceState{Mode: cfg.Mode, Polling: a.keeper.Monitor.Polling(desc.ID)}
		if last, ok := a.keeper.Monitor.LastStatus(desc.ID); ok {
			st.LastStatus = &last
		}
		states[desc.ID] = st
	}
	c.JSON(200, gin.H{
		"uptime":     time.Since(a.startTime).Round(time.Second).String(),
		"deployment": a.keeper.Remote.State().Phase,
		"services":   states,
	})
}
