package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/silo/silo"
	"github.com/tailored-agentic-units/silo/watch"
)

// toValue converts a materialized value to its wire form. Values structpb
// cannot represent directly (structs, typed maps) go through JSON first.
func toValue(v any) (*structpb.Value, error) {
	value, err := structpb.NewValue(v)
	if err == nil {
		return value, nil
	}

	raw, jerr := json.Marshal(v)
	if jerr != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return structpb.NewValue(generic)
}

func toStruct(fields map[string]any) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for key, v := range fields {
		value, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		out.Fields[key] = value
	}
	return out, nil
}

// snapshotUpdate describes a node as an update with sequence 0, the form
// used for GetState replies and the first message of a watch stream.
func snapshotUpdate(n *silo.Node) watch.Update {
	return watch.NewUpdate(n, n.State())
}

func encodeUpdate(u watch.Update) (*structpb.Struct, error) {
	modifiers := make([]any, len(u.Modifiers))
	for i, name := range u.Modifiers {
		modifiers[i] = name
	}

	state := make(map[string]any, len(u.State))
	for key, v := range u.State {
		state[key] = v
	}

	return toStruct(map[string]any{
		"node":      u.Node,
		"sequence":  u.Sequence,
		"time":      u.Time.Format(time.RFC3339Nano),
		"value":     u.Value,
		"state":     state,
		"modifiers": modifiers,
	})
}

func decodeUpdate(s *structpb.Struct) (watch.Update, error) {
	fields := s.AsMap()

	u := watch.Update{
		Value: fields["value"],
	}

	u.Node, _ = fields["node"].(string)

	if seq, ok := fields["sequence"].(float64); ok {
		u.Sequence = uint64(seq)
	}

	if ts, ok := fields["time"].(string); ok && ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return watch.Update{}, fmt.Errorf("decode update time: %w", err)
		}
		u.Time = t
	}

	if state, ok := fields["state"].(map[string]any); ok {
		u.State = state
	}

	if modifiers, ok := fields["modifiers"].([]any); ok {
		for _, m := range modifiers {
			if name, ok := m.(string); ok {
				u.Modifiers = append(u.Modifiers, name)
			}
		}
	}

	return u, nil
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

// anyField returns the decoded field, or nil when it is absent.
func anyField(s *structpb.Struct, key string) any {
	if s == nil {
		return nil
	}
	value, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	return value.AsInterface()
}
