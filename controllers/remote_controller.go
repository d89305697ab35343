package controllers

import (
	"net/http"

	"clara-keeper/internal/config"
	"clara-keeper/internal/models"
	"clara-keeper/services"

	"github.com/gin-gonic/gin"
)

type RemoteController struct {
	keeper *services.Keeper
}

func NewRemoteController(keeper *services.Keeper) *RemoteController {
	return &RemoteController{keeper: keeper}
}

/**
 * Register remote deployment routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - GET/PUT /clara/api/v1/remote/config   persisted server record
 * - POST    /clara/api/v1/remote/test     SSH + hardware probe
 * - POST    /clara/api/v1/remote/deploy   deploy ClaraCore container
 * - GET     /clara/api/v1/remote/session  current session phase and logs
 */
func (rc *RemoteController) RegisterRoutes(r *gin.Engine) {
	group := r.Group("/clara/api/v1/remote")
	group.GET("/config", rc.GetConfig)
	group.PUT("/config", rc.PutConfig)
	group.POST("/test", rc.Test)
	group.POST("/deploy", rc.Deploy)
	group.GET("/session", rc.Session)
}

// @Summary 查询远程服务器配置
// @Tags Remote
// @Produce json
// @Success 200 {object} models.RemoteServerConfig
// @Router /clara/api/v1/remote/config [get]
func (rc *RemoteController) GetConfig(c *gin.Context) {
	cfg, err := config.LoadRemoteServerConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "remote.config_read_failed",
			Error: err.Error(),
		})
		return
	}
	// The password never leaves the daemon.
	cfg.Password = ""
	c.JSON(http.StatusOK, cfg)
}

// @Summary 保存远程服务器配置
// @Tags Remote
// @Accept json
// @Produce json
// @Param body body models.RemoteServerConfig true "Server record"
// @Success 200 {object} map[string]interface{}
// @Router /clara/api/v1/remote/config [put]
func (rc *RemoteController) PutConfig(c *gin.Context) {
	var req models.RemoteServerConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "remote.invalid_request",
			Error: err.Error(),
		})
		return
	}
	existing, err := config.LoadRemoteServerConfig()
	if err == nil {
		// An omitted password keeps the stored one.
		if req.Password == "" {
			req.Password = existing.Password
		}
		if req.Services == nil {
			req.Services = existing.Services
		}
	}
	if req.Port == 0 {
		req.Port = 22
	}
	if err := config.SaveRemoteServerConfig(&req); err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "remote.config_write_failed",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type remoteTestRequest struct {
	models.SSHCredentials
}

// @Summary 测试远程服务器连接并探测硬件
// @Description Connection success and deployability are reported separately
// @Tags Remote
// @Accept json
// @Produce json
// @Param body body remoteTestRequest false "Credentials; stored record is used when omitted"
// @Success 200 {object} models.TestResult
// @Router /clara/api/v1/remote/test [post]
func (rc *RemoteController) Test(c *gin.Context) {
	creds, ok := rc.resolveCredentials(c)
	if !ok {
		return
	}
	result, err := rc.keeper.Remote.TestSetup(c.Request.Context(), creds)
	if err != nil {
		c.JSON(http.StatusConflict, &models.ErrorResponse{
			Code:  "remote.test_unavailable",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

type remoteDeployRequest struct {
	models.SSHCredentials
	HardwareType models.HardwareType `json:"hardwareType"`
}

// @Summary 部署ClaraCore到远程服务器
// @Description Only available after a successful test in the same session
// @Tags Remote
// @Accept json
// @Produce json
// @Param body body remoteDeployRequest false "Credentials and optional hardware override"
// @Success 200 {object} models.DeployResult
// @Failure 409 {object} models.ErrorResponse
// @Router /clara/api/v1/remote/deploy [post]
func (rc *RemoteController) Deploy(c *gin.Context) {
	var req remoteDeployRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, &models.ErrorResponse{
				Code:  "remote.invalid_request",
				Error: err.Error(),
			})
			return
		}
	}
	creds := req.SSHCredentials
	if creds.Host == "" {
		stored, err := config.LoadRemoteServerConfig()
		if err != nil || stored.Host == "" {
			c.JSON(http.StatusBadRequest, &models.ErrorResponse{
				Code:  "remote.no_credentials",
				Error: "no stored server record and none supplied",
			})
			return
		}
		creds = stored.Credentials()
	}

	result, err := rc.keeper.Remote.Deploy(c.Request.Context(), creds, req.HardwareType)
	if err != nil {
		c.JSON(http.StatusConflict, &models.ErrorResponse{
			Code:  "remote.deploy_unavailable",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary 查询当前部署会话状态
// @Tags Remote
// @Produce json
// @Success 200 {object} models.DeploymentSessionState
// @Router /clara/api/v1/remote/session [get]
func (rc *RemoteController) Session(c *gin.Context) {
	c.JSON(http.StatusOK, rc.keeper.Remote.State())
}

func (rc *RemoteController) resolveCredentials(c *gin.Context) (models.SSHCredentials, bool) {
	var req remoteTestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, &models.ErrorResponse{
				Code:  "remote.invalid_request",
				Error: err.Error(),
			})
			return models.SSHCredentials{}, false
		}
	}
	if req.Host != "" {
		return req.SSHCredentials, true
	}
	stored, err := config.LoadRemoteServerConfig()
	if err != nil || stored.Host == "" {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "remote.no_credentials",
			Error: "no stored server record and none supplied",
		})
		return models.SSHCredentials{}, false
	}
	return stored.Credentials(), true
}
