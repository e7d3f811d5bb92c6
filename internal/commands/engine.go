package commands

// Engine is the host-only scripting API behind every domain command.
// Inside a Houdini session it is backed by the embedded interpreter;
// standalone builds run without one, and handlers answer with an error
// response instead.
type Engine interface {
	// Call performs one named operation synchronously and returns its
	// raw result map.
	Call(command string, params map[string]any) (map[string]any, error)
}
