package controllers

import (
	"errors"
	"net/http"
	"runtime"

	"clara-keeper/internal/config"
	"clara-keeper/internal/models"
	"clara-keeper/services"

	"github.com/gin-gonic/gin"
)

type ModeController struct {
	keeper *services.Keeper
}

func NewModeController(keeper *services.Keeper) *ModeController {
	return &ModeController{keeper: keeper}
}

func (m *ModeController) RegisterRoutes(r *gin.Engine) {
	r.GET("/clara/api/v1/services/:id/mode", m.Get)
	r.POST("/clara/api/v1/services/:id/mode", m.Switch)
}

type switchModeRequest struct {
	Mode      models.DeployMode `json:"mode" binding:"required"`
	URL       string            `json:"url"`
	Confirmed bool              `json:"confirmed"`
}

// @Summary 查询服务部署模式
// @Tags Mode
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} map[string]interface{}
// @Router /clara/api/v1/services/{id}/mode [get]
func (m *ModeController) Get(c *gin.Context) {
	id := c.Param("id")
	desc := m.keeper.Registry.Get(id)
	if desc == nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "service.not_found",
			Error: "unknown service: " + id,
		})
		return
	}
	cfg := m.keeper.Store.GetConfig(id)
	c.JSON(http.StatusOK, gin.H{
		"mode":           cfg.Mode,
		"url":            cfg.URL,
		"supportedModes": desc.SupportedModes(runtime.GOOS),
	})
}

// @Summary 切换服务部署模式
// @Description Stops the old deployment, persists the new mode, then (for
// @Description ClaraCore only) starts the new deployment. Switching to
// @Description remote requires a prior successful remote deployment.
// @Tags Mode
// @Accept json
// @Produce json
// @Param id path string true "Service ID"
// @Param body body switchModeRequest true "Target mode"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,409 {object} models.ErrorResponse
// @Router /clara/api/v1/services/{id}/mode [post]
func (m *ModeController) Switch(c *gin.Context) {
	id := c.Param("id")
	desc := m.keeper.Registry.Get(id)
	if desc == nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "service.not_found",
			Error: "unknown service: " + id,
		})
		return
	}

	var req switchModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "mode.invalid_request",
			Error: err.Error(),
		})
		return
	}
	if !desc.Supports(req.Mode, runtime.GOOS) {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "mode.unsupported",
			Error: "mode " + string(req.Mode) + " is not supported for " + id + " on this platform",
		})
		return
	}

	url := req.URL
	if req.Mode == models.ModeRemote {
		remoteURL, err := m.remoteURLFor(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
				Code:  "mode.remote_lookup_failed",
				Error: err.Error(),
			})
			return
		}
		if remoteURL == "" {
			c.JSON(http.StatusConflict, &models.ErrorResponse{
				Code:  "mode.remote_not_deployed",
				Error: "service " + id + " has no remote deployment; run the remote setup first",
			})
			return
		}
		if url == "" {
			url = remoteURL
		}
	}

	// ClaraCore restarts immediately on a mode change, interrupting any
	// in-flight completions; the caller must acknowledge that.
	current := m.keeper.Store.GetConfig(id)
	if id == models.ServiceClaraCore && current.Mode != req.Mode && !req.Confirmed {
		c.JSON(http.StatusConflict, &models.ErrorResponse{
			Code:  "mode.confirmation_required",
			Error: "switching ClaraCore restarts it immediately; repeat the request with confirmed=true",
		})
		return
	}

	if err := m.keeper.Switcher.SwitchMode(c.Request.Context(), id, req.Mode, url); err != nil {
		if errors.Is(err, services.ErrSwitchDeclined) {
			c.JSON(http.StatusConflict, &models.ErrorResponse{
				Code:  "mode.switch_declined",
				Error: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "mode.switch_failed",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "mode": req.Mode, "url": url})
}

// remoteURLFor resolves the last-known remote URL of a service, "" when it
// was never deployed remotely.
func (m *ModeController) remoteURLFor(id string) (string, error) {
	if id == models.ServiceClaraCore {
		core, err := config.LoadClaraCoreRemoteConfig()
		if err != nil {
			return "", err
		}
		if core.Deployed {
			return core.URL, nil
		}
	}
	server, err := config.LoadRemoteServerConfig()
	if err != nil {
		return "", err
	}
	return server.Services[id].URL, nil
}
