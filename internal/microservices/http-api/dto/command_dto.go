package dto

// CommandRequest is the POST /command body.
type CommandRequest struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// RunRequest is the legacy POST /houdini/run body kept for older
// clients. "command"/"args" map onto "type"/"params".
type RunRequest struct {
	Command string         `json:"command"`
	Args    map[string]any `json:"args"`
}
