package envelope

import (
	"encoding/json"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func genLeaf() *rapid.Generator[any] {
	return rapid.OneOf(
		rapid.Map(rapid.StringMatching(`s-[a-z]{0,8}`), func(s string) any { return s }),
		rapid.Map(rapid.IntRange(-1000, 1000), func(i int) any { return float64(i) }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
	)
}

func genValue(depth int) *rapid.Generator[any] {
	if depth <= 0 {
		return genLeaf()
	}
	return rapid.OneOf(
		genLeaf(),
		rapid.Map(rapid.SliceOfN(genValue(depth-1), 0, 3), func(items []any) any { return items }),
		rapid.Map(rapid.MapOfN(rapid.StringMatching(`k[a-z]{0,4}`), genValue(depth-1), 0, 3), func(m map[string]any) any { return m }),
	)
}

// stringify encodes containers as JSON strings so decoding has to re-parse them.
func stringify(t *rapid.T, value any) any {
	switch typed := value.(type) {
	case []any, map[string]any:
		raw, err := json.Marshal(typed)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return string(raw)
	default:
		return value
	}
}

func TestProperty_DeepParseIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := genValue(3).Draw(t, "value")
		if rapid.Bool().Draw(t, "stringify") {
			value = stringify(t, value)
		}

		once := DeepParse(value)
		twice := DeepParse(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("deep parse not idempotent:\n once:  %#v\n twice: %#v", once, twice)
		}
	})
}

func TestProperty_EnvelopeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := genValue(2).Draw(t, "payload")
		structured := rapid.MapOfN(rapid.StringMatching(`attr[a-z]{0,4}`), genValue(2), 0, 4).Draw(t, "attrs")
		labels := rapid.MapOfN(rapid.StringMatching(`label[a-z]{0,4}`), rapid.StringMatching(`[a-z0-9 ]{0,8}`), 0, 3).Draw(t, "labels")

		attrs := map[string]Attribute{}
		for name, v := range structured {
			raw, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal attr: %v", err)
			}
			attrs[name] = Attribute{Type: "String.Array", Value: string(raw)}
		}
		for name, v := range labels {
			attrs[name] = Attribute{Type: "String", Value: v}
		}

		body, err := json.Marshal(map[string]any{
			"Type":              "Notification",
			"Message":           stringify(t, payload),
			"MessageAttributes": attrs,
		})
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}

		msg, err := Decode(Entry{Body: string(body)})
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !reflect.DeepEqual(normalize(payload), msg.Payload) {
			t.Fatalf("payload mismatch:\n got:  %#v\n want: %#v", msg.Payload, payload)
		}
		for name, v := range structured {
			if !reflect.DeepEqual(normalize(v), msg.Attributes[name]) {
				t.Fatalf("attribute %q mismatch: got %#v want %#v", name, msg.Attributes[name], v)
			}
		}
		for name, v := range labels {
			if msg.Attributes[name] != v {
				t.Fatalf("string attribute %q mismatch: got %#v want %q", name, msg.Attributes[name], v)
			}
		}
	})
}

// normalize maps nil containers produced by generators onto their JSON-decoded shape.
func normalize(value any) any {
	switch typed := value.(type) {
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = normalize(v)
		}
		return out
	default:
		return value
	}
}
