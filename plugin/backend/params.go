package backend

import (
	"sort"
	"strconv"
	"strings"
	"time"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
)

// DefaultLimit is the default maximum number of suggestions per backend.
const DefaultLimit = 100

// Params are backend configuration values. Values are kept as strings and
// parsed on access, so malformed values surface when an operation needs them.
type Params map[string]string

// Merge returns a new Params with other's values overriding p's.
func (p Params) Merge(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the trimmed value of key and whether it is set and non-empty.
func (p Params) Get(key string) (string, bool) {
	v, ok := p[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// String returns the value of key or def.
func (p Params) String(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// Int parses key as an integer.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p.Get(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, ierrors.Configuration("parameter %s must be an integer, got %q", key, v)
	}
	return n, nil
}

// Float parses key as a floating point number.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p.Get(key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, ierrors.Configuration("parameter %s must be a number, got %q", key, v)
	}
	return f, nil
}

// Bool parses key as a boolean.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p.Get(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, ierrors.Configuration("parameter %s must be a boolean, got %q", key, v)
	}
	return b, nil
}

// Duration parses key as a Go duration ("1s") or a number of seconds.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p.Get(key)
	if !ok {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, ierrors.Configuration("parameter %s must be a duration, got %q", key, v)
}

// Require fails with a configuration error naming the first missing key.
func (p Params) Require(keys ...string) error {
	for _, key := range keys {
		if _, ok := p.Get(key); !ok {
			return ierrors.Configuration("%s setting is missing", key)
		}
	}
	return nil
}

// Limit returns the positive "limit" parameter.
func (p Params) Limit() (int, error) {
	limit, err := p.Int("limit", DefaultLimit)
	if err != nil {
		return 0, err
	}
	if limit <= 0 {
		return 0, ierrors.Configuration("parameter limit must be positive, got %d", limit)
	}
	return limit, nil
}
