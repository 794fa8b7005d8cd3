package rules

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	// ErrFunctionExists reports a second registration under the same name.
	ErrFunctionExists = errors.New("rules: function already registered")
	// ErrUnknownFunction reports a call to a name nobody registered.
	ErrUnknownFunction = errors.New("rules: function not registered")
)

// Function is a callable exposed to expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry holds custom functions. Lookups ignore case; the
// registered spelling is kept for engines that bind functions by name.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]namedFunction
}

type namedFunction struct {
	name string
	fn   Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: map[string]namedFunction{}}
}

func functionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds fn under name.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := functionKey(name)
	switch {
	case key == "":
		return fmt.Errorf("rules: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("rules: function %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = map[string]namedFunction{}
	}
	if _, ok := r.funcs[key]; ok {
		return fmt.Errorf("%w: %s", ErrFunctionExists, name)
	}
	r.funcs[key] = namedFunction{name: strings.TrimSpace(name), fn: fn}
	return nil
}

// Clone copies the name table; the functions themselves are shared.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{funcs: maps.Clone(r.funcs)}
}

func (r *FunctionRegistry) lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.funcs[functionKey(name)]
	return entry.fn, ok
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn(args...)
}

// Names lists the registered names, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for _, entry := range r.funcs {
		names = append(names, entry.name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// SettingsFunctions returns a registry preloaded with helpers for common
// settings rules:
//
//	timeReached(now, "0600")            now is at or past 06:00 local time
//	anyTimeReached(now, ["0600","2000"]) at least one point has passed today
//	selected(list, "antSports")         list contains the id
func SettingsFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	mustRegister(r, "timeReached", func(args ...any) (any, error) {
		now, points, err := timeArgs("timeReached", args)
		if err != nil {
			return nil, err
		}
		if len(points) != 1 {
			return nil, fmt.Errorf("rules: timeReached expects one time point")
		}
		return reached(now, points[0])
	})
	mustRegister(r, "anyTimeReached", func(args ...any) (any, error) {
		now, points, err := timeArgs("anyTimeReached", args)
		if err != nil {
			return nil, err
		}
		for _, point := range points {
			ok, err := reached(now, point)
			if err != nil {
				return nil, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
	mustRegister(r, "selected", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("rules: selected expects a list and an id")
		}
		id := fmt.Sprint(args[1])
		for _, item := range toStrings(args[0]) {
			if item == id {
				return true, nil
			}
		}
		return false, nil
	})
	return r
}

// mustRegister panics when a built-in helper cannot be registered.
func mustRegister(r *FunctionRegistry, name string, fn Function) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

func timeArgs(name string, args []any) (time.Time, []string, error) {
	if len(args) != 2 {
		return time.Time{}, nil, fmt.Errorf("rules: %s expects now and time points", name)
	}
	now, ok := args[0].(time.Time)
	if !ok {
		return time.Time{}, nil, fmt.Errorf("rules: %s: first argument must be a time, got %T", name, args[0])
	}
	return now, toStrings(args[1]), nil
}

// reached parses an HHMM point and reports whether now is at or past it on
// now's calendar day.
func reached(now time.Time, point string) (bool, error) {
	at, err := time.ParseInLocation("1504", strings.TrimSpace(point), now.Location())
	if err != nil {
		return false, fmt.Errorf("rules: time point %q: %w", point, err)
	}
	y, m, d := now.Date()
	threshold := time.Date(y, m, d, at.Hour(), at.Minute(), 0, 0, now.Location())
	return !now.Before(threshold), nil
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
