package commands

import (
	"fmt"
)

// handlerSet holds what every forwarding handler needs: the engine to
// delegate to and an optional schema store for param validation.
type handlerSet struct {
	engine  Engine
	schemas *SchemaStore
}

// DefaultHandlers builds the built-in handler registry. Each handler is
// a thin validation layer: it checks required parameters (and the
// schema document when one is loaded), then hands the call to the
// engine. Engine may be nil for standalone runs.
func DefaultHandlers(engine Engine, schemas *SchemaStore) map[string]HandlerFunc {
	s := &handlerSet{engine: engine, schemas: schemas}
	return map[string]HandlerFunc{
		"create_node":      s.forward("create_node", "node_type"),
		"connect_nodes":    s.forward("connect_nodes", "from_path", "to_path"),
		"set_param":        s.forward("set_param", "node_path", "param_name", "value"),
		"get_scene_info":   s.forward("get_scene_info"),
		"get_object_info":  s.forward("get_object_info", "object_name"),
		"create_fluid_sim": s.forward("create_fluid_sim"),
		"create_pyro_sim":  s.forward("create_pyro_sim"),
		"run_simulation":   s.forward("run_simulation"),
		"execute_code":     s.forward("execute_code", "code"),
	}
}

// forward returns a handler that validates params and delegates to the
// engine. The handler returns plain maps; canonicalization is the
// executor's job.
func (s *handlerSet) forward(name string, required ...string) HandlerFunc {
	return func(params map[string]any) any {
		for _, key := range required {
			if _, ok := params[key]; !ok {
				return map[string]any{
					"status":  "error",
					"message": fmt.Sprintf("Missing required parameter: %s", key),
				}
			}
		}

		if s.schemas != nil {
			if err := s.schemas.ValidateParams(name, params); err != nil {
				return map[string]any{
					"status":  "error",
					"message": err.Error(),
				}
			}
		}

		if s.engine == nil {
			return map[string]any{
				"status":  "error",
				"message": fmt.Sprintf("Not connected to a Houdini session, cannot execute %s", name),
			}
		}

		result, err := s.engine.Call(name, params)
		if err != nil {
			return map[string]any{
				"status":  "error",
				"message": err.Error(),
			}
		}
		return result
	}
}
