package content

import (
	"regexp"
	"strconv"
)

// segmentPattern matches either a map key or a [n] array index, so a path
// like "content.items[2].title" decomposes into key/index segments.
var segmentPattern = regexp.MustCompile(`([^\[\]\.]+)|\[(\d+)\]`)

type segment struct {
	key   string
	index int
}

func parsePath(path string) []segment {
	matches := segmentPattern.FindAllStringSubmatch(path, -1)
	segments := make([]segment, 0, len(matches))
	for _, m := range matches {
		if m[1] != "" {
			segments = append(segments, segment{key: m[1], index: -1})
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return nil
		}
		segments = append(segments, segment{index: idx})
	}
	return segments
}

// Get resolves a dotted/bracketed path against a generic document. An
// unresolved segment yields nil, never an error.
func Get(doc map[string]interface{}, path string) interface{} {
	if doc == nil || path == "" {
		return nil
	}

	var current interface{} = doc
	for _, seg := range parsePath(path) {
		if seg.index < 0 {
			m, ok := current.(map[string]interface{})
			if !ok {
				return nil
			}
			current, ok = m[seg.key]
			if !ok {
				return nil
			}
			continue
		}

		list, ok := current.([]interface{})
		if !ok || seg.index >= len(list) {
			return nil
		}
		current = list[seg.index]
	}

	return current
}

// Set writes a value at the given path, creating intermediate map nodes for
// dotted segments. Array elements are only written when the slice and index
// already exist; Set never creates or grows arrays. Unresolvable paths are
// a no-op.
func Set(doc map[string]interface{}, path string, value interface{}) {
	if doc == nil || path == "" {
		return
	}

	segments := parsePath(path)
	if len(segments) == 0 {
		return
	}

	var current interface{} = doc
	for i, seg := range segments {
		last := i == len(segments)-1

		if seg.index >= 0 {
			list, ok := current.([]interface{})
			if !ok || seg.index >= len(list) {
				return
			}
			if last {
				list[seg.index] = value
				return
			}
			current = list[seg.index]
			continue
		}

		m, ok := current.(map[string]interface{})
		if !ok {
			return
		}
		if last {
			m[seg.key] = value
			return
		}

		next, exists := m[seg.key]
		if !exists {
			// Only map nodes are created; an index segment following a
			// missing key cannot be satisfied.
			if segments[i+1].index >= 0 {
				return
			}
			child := map[string]interface{}{}
			m[seg.key] = child
			current = child
			continue
		}
		current = next
	}
}

// DeepCopy clones a document tree of maps, slices and scalars. Scalar leaves
// are shared; maps and slices are duplicated.
func DeepCopy(doc map[string]interface{}) map[string]interface{} {
	if doc == nil {
		return nil
	}
	return copyValue(doc).(map[string]interface{})
}

func copyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			out[k] = copyValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, val := range tv {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}
