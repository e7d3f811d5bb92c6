package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// HandlerFunc performs the domain action for one command name. Handlers
// are expected, but not required, to return a map carrying a "status"
// field; the executor normalizes whatever comes back.
type HandlerFunc func(params map[string]any) any

// Executor maps command names to handlers and guarantees that every
// caller sees the canonical {"status", "message", ...} response shape
// no matter what an individual handler produced. The registry is fixed
// at construction and safely shared across connection workers.
type Executor struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewExecutor builds an executor over the given handler set. The
// introspection command "list_available_commands" is always registered
// and dispatched like any other command.
func NewExecutor(handlers map[string]HandlerFunc) *Executor {
	e := &Executor{
		handlers: make(map[string]HandlerFunc, len(handlers)+1),
		logger:   slog.Default(),
	}
	for name, h := range handlers {
		e.handlers[name] = h
	}
	e.handlers["list_available_commands"] = e.listAvailableCommands
	return e
}

// ListCommands returns the registered command names in sorted order.
func (e *Executor) ListCommands() []string {
	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Executor) listAvailableCommands(_ map[string]any) any {
	return map[string]any{
		"status":   "success",
		"commands": e.ListCommands(),
	}
}

// Execute dispatches one command and normalizes the result. Faults
// raised inside a handler never escape: they come back as an error
// response like every other failure.
func (e *Executor) Execute(cmdType string, params map[string]any) (response map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler_panic",
				"command_type", cmdType,
				"panic", fmt.Sprint(r),
			)
			response = errorResponse(fmt.Sprintf("Error executing command: %v", r))
		}
	}()

	handler, ok := e.handlers[cmdType]
	if !ok {
		return errorResponse(fmt.Sprintf("Unknown command type: %s", cmdType))
	}

	if params == nil {
		params = map[string]any{}
	}

	e.logger.Info("executing_command", "command_type", cmdType)
	return e.normalize(cmdType, handler(params))
}

// normalize forces an arbitrary handler result into the canonical
// response contract:
//   - non-map results become an error response describing the value
//   - a missing "status" is derived from an "error" field when present,
//     otherwise defaults to success
//   - a missing "message" gets a generic phrase for its status
//   - the final structure must survive JSON serialization, or it is
//     replaced by an error response citing the fault
func (e *Executor) normalize(cmdType string, raw any) map[string]any {
	obj, ok := raw.(map[string]any)
	if !ok {
		e.logger.Warn("invalid_handler_response",
			"command_type", cmdType,
			"response", fmt.Sprint(raw),
		)
		return errorResponse(fmt.Sprintf("Invalid response format: %v", raw))
	}

	if _, ok := obj["status"]; !ok {
		if errVal, ok := obj["error"]; ok {
			// Old handler convention: {"error": "..."}.
			return errorResponse(fmt.Sprint(errVal))
		}
		obj["status"] = "success"
	}

	if _, ok := obj["message"]; !ok {
		if obj["status"] == "error" {
			obj["message"] = "An unknown error occurred"
		} else {
			obj["message"] = "Command executed successfully"
		}
	}

	if _, err := json.Marshal(obj); err != nil {
		e.logger.Warn("non_serializable_response",
			"command_type", cmdType,
			"error", err.Error(),
		)
		return errorResponse(fmt.Sprintf("Server generated a non-serializable response: %v", err))
	}

	return obj
}

func errorResponse(message string) map[string]any {
	return map[string]any{
		"status":  "error",
		"message": message,
	}
}
