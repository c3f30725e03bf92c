package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errNotObject = errors.New("json value is not an object")
	errTooDeep   = errors.New("json nesting exceeds limit")
)

const (
	fieldMessage           = "Message"
	fieldMessageAttributes = "MessageAttributes"
)

// Decode parses a queue entry carrying an SNS envelope.
//
// The envelope's Message becomes the payload after DeepParse. MessageAttributes are
// flattened: String and Number values are kept verbatim as strings, any other declared
// type is JSON-decoded. A body that is valid JSON but not an object carries no envelope
// and decodes with a nil payload. A body that is not JSON, or an attribute value that
// does not decode, yields a *MalformedEnvelopeError.
func Decode(entry Entry) (*Message, error) {
	if strings.TrimSpace(entry.Body) == "" {
		return nil, malformed(entry, "empty body", nil)
	}

	root, err := unwrapObject([]byte(entry.Body))
	switch {
	case errors.Is(err, errNotObject):
		root = nil
	case err != nil:
		return nil, malformed(entry, "body is not valid json", err)
	}

	attributes := map[string]any{}
	if rawAttrs, ok := root[fieldMessageAttributes]; ok && rawAttrs != nil {
		attributes, err = flattenEnvelopeAttributes(rawAttrs)
		if err != nil {
			return nil, malformed(entry, "invalid message attributes", err)
		}
	} else if len(entry.Attributes) > 0 {
		attributes, err = FlattenAttributes(entry.Attributes)
		if err != nil {
			return nil, malformed(entry, "invalid queue attributes", err)
		}
	}

	return &Message{
		MessageID:     entry.MessageID,
		Payload:       DeepParse(root[fieldMessage]),
		Attributes:    attributes,
		ReceiptHandle: entry.ReceiptHandle,
	}, nil
}

// FlattenAttributes converts typed attributes into plain values.
func FlattenAttributes(attrs map[string]Attribute) (map[string]any, error) {
	out := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		value, err := flattenValue(attr.Type, attr.Value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

func flattenValue(attrType string, value any) (any, error) {
	if attrType == attributeTypeString || attrType == attributeTypeNumber {
		return value, nil
	}

	raw, ok := value.(string)
	if !ok {
		// Already structured, e.g. when the envelope nested the value as JSON.
		return DeepParse(value), nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	return DeepParse(decoded), nil
}

func flattenEnvelopeAttributes(raw any) (map[string]any, error) {
	if s, ok := raw.(string); ok {
		obj, err := unwrapObject([]byte(s))
		if err != nil {
			return nil, err
		}
		raw = obj
	}

	attrs, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}

	out := make(map[string]any, len(attrs))
	for name, item := range attrs {
		pair, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("attribute %q: %w", name, errNotObject)
		}
		attrType, _ := pair["Type"].(string)
		value, err := flattenValue(attrType, pair["Value"])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}
