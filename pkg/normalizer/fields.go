package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Raw payloads are walked as generic maps so each field can be looked up
// under several aliases. Numbers may arrive as json.Number, float64, int or
// numeric strings depending on the upstream and the decoder.

// lookup follows a dotted path through nested objects.
func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// str returns the first non-empty string found under any alias.
func str(m map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		v, ok := lookup(m, alias)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case json.Number:
			return s.String()
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case int:
			return strconv.Itoa(s)
		case int64:
			return strconv.FormatInt(s, 10)
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// number returns the first numeric value found under any alias.
func number(m map[string]any, aliases ...string) (float64, bool) {
	for _, alias := range aliases {
		if v, ok := lookup(m, alias); ok {
			if f, ok := toFloat(v); ok && !math.IsNaN(f) {
				return f, true
			}
		}
	}
	return 0, false
}

// count returns an optional integer, nil when absent or not numeric.
func count(m map[string]any, aliases ...string) *int {
	f, ok := number(m, aliases...)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func integer(m map[string]any, aliases ...string) int {
	if n := count(m, aliases...); n != nil {
		return *n
	}
	return 0
}

func boolean(m map[string]any, aliases ...string) bool {
	for _, alias := range aliases {
		v, ok := lookup(m, alias)
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			parsed, err := strconv.ParseBool(b)
			if err == nil {
				return parsed
			}
		}
	}
	return false
}

// object returns the first nested object found under any alias. A list
// yields its first object element, as JSON-LD allows either.
func object(m map[string]any, aliases ...string) map[string]any {
	for _, alias := range aliases {
		v, ok := lookup(m, alias)
		if !ok {
			continue
		}
		switch o := v.(type) {
		case map[string]any:
			return o
		case []any:
			for _, el := range o {
				if obj, ok := el.(map[string]any); ok {
					return obj
				}
			}
		}
	}
	return nil
}

// list returns the value under key as a slice; a lone value becomes a
// one-element slice.
func list(m map[string]any, key string) []any {
	v, ok := lookup(m, key)
	if !ok {
		return nil
	}
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{v}
}

// edgeNodes returns the node objects of a GraphQL edge list at path.
func edgeNodes(m map[string]any, path string) []map[string]any {
	var nodes []map[string]any
	for _, e := range list(m, path+".edges") {
		edge, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if node, ok := edge["node"].(map[string]any); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
}

// timestamp reads either an epoch seconds value or a formatted date.
func timestamp(m map[string]any, aliases ...string) (time.Time, bool) {
	for _, alias := range aliases {
		v, ok := lookup(m, alias)
		if !ok {
			continue
		}
		if f, ok := toFloat(v); ok {
			return time.Unix(int64(f), 0).UTC(), true
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
