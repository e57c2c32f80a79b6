package cyberchef

import (
	"encoding/json"
	"fmt"
)

// OperationStep is a single recipe entry: an operation name plus its
// arguments, keyed by the schema's argument names.
type OperationStep struct {
	Name string         `json:"op"`
	Args map[string]any `json:"args,omitempty"`
}

// Recipe is an ordered pipeline of operation steps.
type Recipe []OperationStep

// Step builds an OperationStep; a convenience for literal recipes.
func Step(name string, args map[string]any) OperationStep {
	return OperationStep{Name: name, Args: args}
}

// ParseRecipe accepts the loose step forms callers use — a bare operation
// name, an OperationStep, or a map with "op"/"args" keys — and normalizes
// them into a Recipe.
func ParseRecipe(steps ...any) (Recipe, error) {
	recipe := make(Recipe, 0, len(steps))
	for i, s := range steps {
		switch v := s.(type) {
		case string:
			recipe = append(recipe, OperationStep{Name: v})
		case OperationStep:
			recipe = append(recipe, v)
		case map[string]any:
			name, ok := v["op"].(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: step %d has no \"op\" key", ErrInvalidArgument, i)
			}
			step := OperationStep{Name: name}
			if rawArgs, ok := v["args"]; ok {
				args, ok := rawArgs.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: step %d args must be an object, got %T", ErrInvalidArgument, i, rawArgs)
				}
				step.Args = args
			}
			recipe = append(recipe, step)
		default:
			return nil, fmt.Errorf("%w: step %d has unsupported form %T", ErrInvalidArgument, i, s)
		}
	}
	return recipe, nil
}

// wireRecipe renders a validated recipe in the form the operation library's
// bake accepts: bare names for argument-less steps, {op, args} objects with
// positional argument lists otherwise. Defaults fill unsupplied slots.
func wireRecipe(reg *OperationRegistry, recipe Recipe) (string, error) {
	steps := make([]any, len(recipe))
	for i, s := range recipe {
		op, err := reg.Lookup(s.Name)
		if err != nil {
			return "", err
		}
		if len(s.Args) == 0 && len(op.Args) == 0 {
			steps[i] = s.Name
			continue
		}
		steps[i] = map[string]any{"op": s.Name, "args": reg.wireArgs(op, s.Args)}
	}
	payload, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("%w: encoding recipe: %v", ErrMarshal, err)
	}
	return string(payload), nil
}
