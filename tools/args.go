package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedArguments means a tool call's arguments could not be
// decoded into an argument map. Callers report this as a tool failure;
// it never aborts the conversation.
var ErrMalformedArguments = errors.New("malformed tool arguments")

// NormalizeArguments coerces the argument payload a runtime hands back
// into an Arguments map. Runtimes disagree on the shape: some deliver a
// decoded map, others raw JSON text. nil and empty text normalize to an
// empty map.
func NormalizeArguments(raw any) (Arguments, error) {
	switch v := raw.(type) {
	case nil:
		return Arguments{}, nil
	case Arguments:
		return v, nil
	case map[string]any:
		return Arguments(v), nil
	case json.RawMessage:
		return decodeArguments(string(v))
	case string:
		return decodeArguments(v)
	default:
		// Named map types and struct-ish payloads round-trip through JSON.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformedArguments, raw)
		}
		return decodeArguments(string(data))
	}
}

func decodeArguments(text string) (Arguments, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Arguments{}, nil
	}
	var args Arguments
	if err := json.Unmarshal([]byte(text), &args); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedArguments, text)
	}
	return args, nil
}
