package modifiers

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/silo"
)

// exprEnv declares the variables an expression can read.
func exprEnv(current, index, payload any) map[string]any {
	return map[string]any{
		"current": current,
		"index":   index,
		"payload": payload,
	}
}

// buildExpr compiles cfg.Expr once; each invocation runs the program with
// the node's current value, the invocation index (nil when node-scoped) and
// the payload.
func buildExpr(cfg config.ModifierConfig) (silo.Modifier, error) {
	if cfg.Expr == "" {
		return silo.Modifier{}, fmt.Errorf("%w: expr is empty", ErrInvalidConfig)
	}

	program, err := expr.Compile(cfg.Expr, expr.Env(exprEnv(nil, nil, nil)))
	if err != nil {
		return silo.Modifier{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return declare(cfg, func(_ context.Context, current, index, payload any) (any, error) {
		return run(program, exprEnv(current, index, payload))
	})
}

func run(program *vm.Program, env map[string]any) (any, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("expr: %w", err)
	}
	return out, nil
}
