package modifiers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/silo"
)

func init() {
	for name, builder := range map[string]Builder{
		"set":         buildSet,
		"increment":   buildIncrement,
		"toggle":      buildToggle,
		"append":      buildAppend,
		"expr":        buildExpr,
		"json-patch":  buildJSONPatch,
		"merge-patch": buildMergePatch,
	} {
		if err := Register(name, builder); err != nil {
			panic(err)
		}
	}
}

func buildSet(cfg config.ModifierConfig) (silo.Modifier, error) {
	return declare(cfg, func(_ context.Context, _, _, payload any) (any, error) {
		return payload, nil
	})
}

func buildIncrement(cfg config.ModifierConfig) (silo.Modifier, error) {
	var step any = 1
	if s, ok := cfg.Args["step"]; ok {
		if _, err := toFloat(s); err != nil {
			return silo.Modifier{}, fmt.Errorf("%w: step: %w", ErrInvalidConfig, err)
		}
		step = s
	}

	return declare(cfg, func(_ context.Context, current, _, payload any) (any, error) {
		delta := step
		if payload != nil {
			delta = payload
		}
		return add(current, delta)
	})
}

func buildToggle(cfg config.ModifierConfig) (silo.Modifier, error) {
	return declare(cfg, func(_ context.Context, current, _, _ any) (any, error) {
		b, ok := current.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: toggle needs a bool, got %T", ErrInvalidValue, current)
		}
		return !b, nil
	})
}

func buildAppend(cfg config.ModifierConfig) (silo.Modifier, error) {
	return declare(cfg, func(_ context.Context, current, _, payload any) (any, error) {
		list, ok := current.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: append needs an array, got %T", ErrInvalidValue, current)
		}
		out := make([]any, len(list), len(list)+1)
		copy(out, list)
		return append(out, payload), nil
	})
}

// add sums two numbers, keeping current's type when both are integers.
func add(current, delta any) (any, error) {
	switch c := current.(type) {
	case int:
		if d, ok := toInt(delta); ok {
			return c + int(d), nil
		}
	case int64:
		if d, ok := toInt(delta); ok {
			return c + d, nil
		}
	case uint64:
		if d, ok := toInt(delta); ok && d >= 0 {
			return c + uint64(d), nil
		}
	}

	a, err := toFloat(current)
	if err != nil {
		return nil, err
	}
	b, err := toFloat(delta)
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, v)
	}
}
