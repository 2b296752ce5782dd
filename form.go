package streamhtml

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// maxFormIndex bounds list indices in form keys, so a request cannot make the
// handler allocate an arbitrarily large slice.
const maxFormIndex = 1000

// DecodeValues turns query or form values into template variables. Keys use dot
// notation for nested objects ("user.name") and brackets for lists ("tags[0]");
// only the first value of each key is used. Keys that conflict with an earlier key
// are skipped and logged at warn level when logger is not nil.
func DecodeValues(values url.Values, logger *slog.Logger) map[string]any {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	vars := map[string]any{}
	for _, k := range keys {
		if _, err := assign(vars, strings.Split(k, "."), values[k][0]); err != nil && logger != nil {
			logger.Warn("Skip form value", slog.String("key", k), slog.Any("error", err))
		}
	}
	return vars
}

// assign stores value under path in node and returns the updated node. A nil node
// becomes a new map or list as the path requires.
func assign(node any, path []string, value string) (any, error) {
	if len(path) == 0 {
		return value, nil
	}

	var m map[string]any
	switch n := node.(type) {
	case nil:
		m = map[string]any{}
	case map[string]any:
		m = n
	default:
		return nil, fmt.Errorf("%q: cannot set a field of %T", path[0], node)
	}

	key, index, ok := splitIndex(path[0])
	if !ok {
		child, err := assign(m[key], path[1:], value)
		if err != nil {
			return nil, err
		}
		m[key] = child
		return m, nil
	}

	if index > maxFormIndex {
		return nil, fmt.Errorf("%q: index exceeds %d", path[0], maxFormIndex)
	}

	var list []any
	switch v := m[key].(type) {
	case nil:
	case []any:
		list = v
	default:
		return nil, fmt.Errorf("%q: expected a list, found %T", key, v)
	}
	if index >= len(list) {
		list = append(list, make([]any, index+1-len(list))...)
	}

	child, err := assign(list[index], path[1:], value)
	if err != nil {
		return nil, err
	}
	list[index] = child
	m[key] = list
	return m, nil
}

// splitIndex splits "key[3]" into "key" and 3. Anything else, including "key[]" and
// "key[x]", is a plain key.
func splitIndex(part string) (key string, index int, ok bool) {
	open := strings.IndexByte(part, '[')
	if open <= 0 || !strings.HasSuffix(part, "]") {
		return part, 0, false
	}
	n, err := strconv.Atoi(part[open+1 : len(part)-1])
	if err != nil || n < 0 {
		return part, 0, false
	}
	return part[:open], n, true
}
