package handlers

import (
	"context"
	"errors"
	"net/http"

	"fan_controller"
	"fan_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errGetState        = "failed to load state"
	errCommandFailed   = "failed to apply command"
	errNodeUnavailable = "controller is not accepting commands, retry shortly"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// SetSpeedRequest is the body of POST /api/v1/fan/speed.
type SetSpeedRequest struct {
	// Manual speed in percent, 20 to 100
	Speed int `json:"speed" binding:"required" example:"60"`
}

// commandResponse is returned by every fan command.
type commandResponse struct {
	Command string                   `json:"command"`
	State   fan_controller.NodeState `json:"state"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get node state
// @Description  Mode, fan speed, sensor channels and clock status.
// @Tags         fan
// @Produce      json
// @Success      200  {object}  fan_controller.NodeState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Increase speed
// @Description  Same as the green button: enters manual mode and steps the speed up.
// @Tags         fan
// @Produce      json
// @Success      200  {object}  commandResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/fan/increase [post]
// @Security     BearerAuth
func (h *Handler) increaseSpeed(c *gin.Context) {
	h.runCommand(c, "increase", h.services.Control.Increase)
}

// @Summary      Decrease speed
// @Description  Same as the red button. An active override still holds its minimum speed.
// @Tags         fan
// @Produce      json
// @Success      200  {object}  commandResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/fan/decrease [post]
// @Security     BearerAuth
func (h *Handler) decreaseSpeed(c *gin.Context) {
	h.runCommand(c, "decrease", h.services.Control.Decrease)
}

// @Summary      Set manual speed
// @Tags         fan
// @Accept       json
// @Produce      json
// @Param        body  body      SetSpeedRequest  true  "Speed payload"
// @Success      200   {object}  commandResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/fan/speed [post]
// @Security     BearerAuth
func (h *Handler) setSpeed(c *gin.Context) {
	var req SetSpeedRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	h.runCommand(c, "set", func(ctx context.Context) (fan_controller.NodeState, error) {
		return h.services.Control.SetSpeed(ctx, req.Speed)
	})
}

// @Summary      Return to automatic control
// @Description  Same as pressing both buttons: the manual speed becomes the auto speed.
// @Tags         fan
// @Produce      json
// @Success      200  {object}  commandResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/fan/auto [post]
// @Security     BearerAuth
func (h *Handler) releaseManual(c *gin.Context) {
	h.runCommand(c, "auto", h.services.Control.Auto)
}

func (h *Handler) runCommand(c *gin.Context, name string, fn func(context.Context) (fan_controller.NodeState, error)) {
	st, err := fn(c.Request.Context())
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidSpeed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case service.IsUnavailable(err):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errNodeUnavailable, "fan_command_unavailable", err, "command", name)
		return
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errCommandFailed, "fan_command_failed", err, "command", name)
		return
	}

	if h.log != nil {
		h.log.Infow("fan_command", "command", name, "operator_id", operatorID(c), "mode", string(st.Mode), "speed", st.SpeedPercent)
	}
	c.JSON(http.StatusOK, commandResponse{Command: name, State: st})
}
