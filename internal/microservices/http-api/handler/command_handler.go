package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"houdinihub/internal/commands"
	"houdinihub/internal/microservices/http-api/dto"
	"houdinihub/internal/microservices/http-api/service"
)

// CommandHandler exposes the socket protocol as REST. It holds no
// per-request state; every submission is one short-lived socket
// exchange through the proxy service.
type CommandHandler struct {
	proxy   *service.ProxyService
	schemas *commands.SchemaStore
}

func NewCommandHandler(proxy *service.ProxyService, schemas *commands.SchemaStore) *CommandHandler {
	return &CommandHandler{proxy: proxy, schemas: schemas}
}

// RegisterRoutes registers the bridge routes
func (h *CommandHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/command", h.PostCommand)
	r.POST("/houdini/run", h.PostRun)
	r.GET("/status", h.GetStatus)
	r.GET("/schema", h.GetSchema)
	r.GET("/schema/:name", h.GetSchemaByName)
}

func (h *CommandHandler) PostCommand(c *gin.Context) {
	var req dto.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Type == "" {
		// Rejected here; no socket connection is opened.
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Missing required field: type",
		})
		return
	}
	h.relay(c, req.Type, req.Params)
}

func (h *CommandHandler) PostRun(c *gin.Context) {
	var req dto.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Command == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Missing required field: command",
		})
		return
	}
	h.relay(c, req.Command, req.Args)
}

// relay forwards one command over the socket and translates the
// normalized response into an HTTP status and body.
func (h *CommandHandler) relay(c *gin.Context, cmdType string, params map[string]any) {
	response, err := h.proxy.SendCommand(cmdType, params)
	if err != nil {
		c.JSON(transportStatus(err), gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	httpStatus := http.StatusOK
	if response["status"] == "error" {
		httpStatus = http.StatusInternalServerError
		if code, ok := response["code"].(float64); ok {
			httpStatus = int(code)
		}
	}
	// "code" is HTTP-layer-only and must not leak into the body.
	delete(response, "code")

	c.JSON(httpStatus, response)
}

// GetStatus issues the introspection command through a normal socket
// exchange, so a 200 here proves the whole pipeline is up.
func (h *CommandHandler) GetStatus(c *gin.Context) {
	response, err := h.proxy.SendCommand("list_available_commands", nil)
	if err != nil {
		c.JSON(transportStatus(err), gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	if response["status"] == "error" {
		c.JSON(http.StatusInternalServerError, response)
		return
	}

	message, _ := response["message"].(string)
	if message == "" {
		message = "Socket server is running"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"message":            message,
		"available_commands": response["commands"],
	})
}

func (h *CommandHandler) GetSchema(c *gin.Context) {
	doc, err := h.schemas.Document()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *CommandHandler) GetSchemaByName(c *gin.Context) {
	name := c.Param("name")
	entry, ok, err := h.schemas.Command(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Unknown command: %s", name),
		})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// transportStatus maps proxy failures onto HTTP status codes: connect
// refusal means the socket server is down (503), a timeout means it is
// not answering (504), anything else is an internal failure.
func transportStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
