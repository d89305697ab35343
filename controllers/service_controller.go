package controllers

import (
	"errors"
	"net/http"

	"clara-keeper/internal/models"
	"clara-keeper/services"

	"github.com/gin-gonic/gin"
)

type ServiceController struct {
	keeper *services.Keeper
}

func NewServiceController(keeper *services.Keeper) *ServiceController {
	return &ServiceController{keeper: keeper}
}

/**
 * Register service lifecycle routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - GET  /clara/api/v1/services           list all managed services
 * - GET  /clara/api/v1/services/:id       one service detail
 * - POST /clara/api/v1/services/:id/start|stop|restart
 * - POST /clara/api/v1/services/:id/check trigger an immediate recheck
 */
func (s *ServiceController) RegisterRoutes(r *gin.Engine) {
	group := r.Group("/clara/api/v1/services")
	group.GET("", s.List)
	group.GET("/:id", s.Get)
	group.POST("/:id/start", s.action(services.ActionStart))
	group.POST("/:id/stop", s.action(services.ActionStop))
	group.POST("/:id/restart", s.action(services.ActionRestart))
	group.POST("/:id/check", s.Check)
}

// @Summary 列出所有托管服务
// @Tags Service
// @Produce json
// @Success 200 {array} models.ServiceDetail
// @Router /clara/api/v1/services [get]
func (s *ServiceController) List(c *gin.Context) {
	details := make([]interface{}, 0, 4)
	for _, desc := range s.keeper.Registry.All() {
		detail, err := s.keeper.Manager.GetDetail(c.Request.Context(), desc.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
				Code:  "service.detail_failed",
				Error: err.Error(),
			})
			return
		}
		details = append(details, detail)
	}
	c.JSON(http.StatusOK, details)
}

// @Summary 查询单个服务
// @Tags Service
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} models.ServiceDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /clara/api/v1/services/{id} [get]
func (s *ServiceController) Get(c *gin.Context) {
	detail, err := s.keeper.Manager.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "service.not_found",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *ServiceController) action(verb services.ServiceAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.keeper.Manager.PerformAction(c.Request.Context(), c.Param("id"), verb)
		if err != nil {
			status := http.StatusInternalServerError
			code := "service.action_failed"
			if errors.Is(err, services.ErrRemoteUnmanaged) {
				status = http.StatusConflict
				code = "service.remote_unmanaged"
			}
			c.JSON(status, &models.ErrorResponse{Code: code, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "action": string(verb)})
	}
}

// @Summary 立即重新检测服务健康
// @Description Cancels any pending poll and probes the service now
// @Tags Service
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} models.ServiceStatus
// @Router /clara/api/v1/services/{id}/check [post]
func (s *ServiceController) Check(c *gin.Context) {
	id := c.Param("id")
	if s.keeper.Registry.Get(id) == nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "service.not_found",
			Error: "unknown service: " + id,
		})
		return
	}
	s.keeper.Monitor.Recheck(id)
	status := s.keeper.Monitor.CheckStatus(c.Request.Context(), id)
	c.JSON(http.StatusOK, status)
}
