package modifiers

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/silo"
)

// buildJSONPatch applies the payload as an RFC 6902 operation list. The
// payload may be raw JSON ([]byte, string, json.RawMessage) or decoded
// values ([]any of operation objects).
func buildJSONPatch(cfg config.ModifierConfig) (silo.Modifier, error) {
	return declare(cfg, func(_ context.Context, current, _, payload any) (any, error) {
		raw, err := encode(payload)
		if err != nil {
			return nil, err
		}

		ops, err := jsonpatch.DecodePatch(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: json patch: %w", ErrInvalidValue, err)
		}

		doc, err := json.Marshal(current)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}

		patched, err := ops.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("apply json patch: %w", err)
		}
		return decode(patched)
	})
}

// buildMergePatch applies the payload as an RFC 7386 merge patch.
func buildMergePatch(cfg config.ModifierConfig) (silo.Modifier, error) {
	return declare(cfg, func(_ context.Context, current, _, payload any) (any, error) {
		raw, err := encode(payload)
		if err != nil {
			return nil, err
		}

		doc, err := json.Marshal(current)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}

		merged, err := jsonpatch.MergePatch(doc, raw)
		if err != nil {
			return nil, fmt.Errorf("apply merge patch: %w", err)
		}
		return decode(merged)
	})
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return raw, nil
	}
}

func decode(raw []byte) (any, error) {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode patched document: %w", err)
	}
	return out, nil
}
