package tcp

import (
	"errors"
)

// Command is the decoded wire request.
// Wire shape: {"type": "<command>", "params": {...}}
// "name" and "parameters" are accepted as aliases for older clients.
type Command struct {
	Type   string
	Params map[string]any
}

var (
	ErrNotObject   = errors.New("Invalid command format: expected JSON object")
	ErrMissingType = errors.New("Invalid command format: missing 'type' field")
)

// ParseCommand shape-checks a decoded message and extracts the command
// envelope. The message must be a JSON object carrying a non-empty
// "type" (or "name") field.
func ParseCommand(msg any) (*Command, error) {
	obj, ok := msg.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}

	cmdType, _ := obj["type"].(string)
	if cmdType == "" {
		cmdType, _ = obj["name"].(string)
	}
	if cmdType == "" {
		return nil, ErrMissingType
	}

	params, _ := obj["params"].(map[string]any)
	if params == nil {
		params, _ = obj["parameters"].(map[string]any)
	}
	if params == nil {
		params = map[string]any{}
	}

	return &Command{Type: cmdType, Params: params}, nil
}
