package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houdinihub/internal/commands"
	tcp "houdinihub/internal/microservices/tcp"
	"houdinihub/internal/microservices/http-api/service"
)

func startSocketServer(t *testing.T, extra map[string]commands.HandlerFunc) *tcp.SocketServer {
	t.Helper()
	handlers := commands.DefaultHandlers(nil, nil)
	for name, h := range extra {
		handlers[name] = h
	}
	executor := commands.NewExecutor(handlers)
	server := tcp.NewServer("127.0.0.1:0", executor, 0)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)
	return server
}

func newBridge(t *testing.T, socketAddr string, schemas *commands.SchemaStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	proxy := service.NewProxyService(socketAddr, 2*time.Second, 0)
	NewCommandHandler(proxy, schemas).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestPostCommandNoBody(t *testing.T) {
	// Point the bridge at a dead address: a 400 here proves the
	// request was rejected before any socket connection was opened.
	r := newBridge(t, "127.0.0.1:1", nil)

	w, body := doJSON(t, r, http.MethodPost, "/command", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "Missing required field: type")
}

func TestPostCommandMissingType(t *testing.T) {
	r := newBridge(t, "127.0.0.1:1", nil)

	w, body := doJSON(t, r, http.MethodPost, "/command", `{"params":{"x":1}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["message"], "type")
}

func TestPostCommandSuccess(t *testing.T) {
	server := startSocketServer(t, nil)
	r := newBridge(t, server.BoundAddr(), nil)

	w, body := doJSON(t, r, http.MethodPost, "/command", `{"type":"list_available_commands"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["commands"])
}

func TestPostCommandUnknownType(t *testing.T) {
	server := startSocketServer(t, nil)
	r := newBridge(t, server.BoundAddr(), nil)

	w, body := doJSON(t, r, http.MethodPost, "/command", `{"type":"no_such_command"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "no_such_command")
}

func TestPostCommandEmbeddedErrorCode(t *testing.T) {
	server := startSocketServer(t, map[string]commands.HandlerFunc{
		"find_node": func(map[string]any) any {
			return map[string]any{"status": "error", "message": "node not found", "code": 404}
		},
	})
	r := newBridge(t, server.BoundAddr(), nil)

	w, body := doJSON(t, r, http.MethodPost, "/command", `{"type":"find_node"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "node not found", body["message"])
	assert.NotContains(t, body, "code", "transient code field must not leak into the body")
}

func TestPostCommandSocketDown(t *testing.T) {
	r := newBridge(t, "127.0.0.1:1", nil)

	w, body := doJSON(t, r, http.MethodPost, "/command", `{"type":"get_scene_info"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", body["status"])
}

func TestPostCommandSocketTimeout(t *testing.T) {
	// A listener that accepts and never replies.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	proxy := service.NewProxyService(listener.Addr().String(), 200*time.Millisecond, 0)
	NewCommandHandler(proxy, nil).RegisterRoutes(r)

	w, body := doJSON(t, r, http.MethodPost, "/command", `{"type":"get_scene_info"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "error", body["status"])
}

func TestPostRunLegacyRoute(t *testing.T) {
	server := startSocketServer(t, nil)
	r := newBridge(t, server.BoundAddr(), nil)

	w, body := doJSON(t, r, http.MethodPost, "/houdini/run", `{"command":"list_available_commands"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])

	w, body = doJSON(t, r, http.MethodPost, "/houdini/run", `{"args":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["message"], "command")
}

func TestGetStatus(t *testing.T) {
	server := startSocketServer(t, nil)
	r := newBridge(t, server.BoundAddr(), nil)

	w, body := doJSON(t, r, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["message"])

	listed, ok := body["available_commands"].([]any)
	require.True(t, ok)
	assert.Contains(t, listed, "list_available_commands")
}

func TestGetStatusSocketDown(t *testing.T) {
	r := newBridge(t, "127.0.0.1:1", nil)

	w, _ := doJSON(t, r, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"create_node": {"description": "Create a node.", "params": {"type": "object"}}
	}`), 0o644))
	schemas := commands.NewSchemaStore(path)
	r := newBridge(t, "127.0.0.1:1", schemas)

	w, _ := doJSON(t, r, http.MethodGet, "/schema", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodGet, "/schema/create_node", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Create a node.", body["description"])

	w, body = doJSON(t, r, http.MethodGet, "/schema/no_such_command", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["message"], "no_such_command")
}

func TestGetSchemaMissingDocument(t *testing.T) {
	schemas := commands.NewSchemaStore(filepath.Join(t.TempDir(), "nope.json"))
	r := newBridge(t, "127.0.0.1:1", schemas)

	w, body := doJSON(t, r, http.MethodGet, "/schema", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", body["status"])
}
