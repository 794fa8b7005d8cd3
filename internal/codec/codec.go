// Package codec converts configuration documents to and from their canonical
// text form. Decoding never panics or aborts on unknown members: it returns a
// Result that tells the caller whether the text was usable, carried an
// unrecognized member, or was malformed.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
)

// GroupsKey is the only top-level member of a persisted document.
const GroupsKey = "settingGroups"

var (
	// ErrEmptyOutput reports an encoding that produced no bytes.
	ErrEmptyOutput = errors.New("codec: encoder produced no output")
	// ErrUnrecognizedMember reports a member the document shape does not know.
	ErrUnrecognizedMember = errors.New("codec: unrecognized member")
	// ErrMalformed reports text that is not a structurally valid document.
	ErrMalformed = errors.New("codec: malformed document")
)

// Wire is the persisted shape: group code -> field code -> field payload.
type Wire struct {
	SettingGroups map[string]map[string]json.RawMessage `json:"settingGroups"`
}

// Kind classifies a decode outcome.
type Kind int

const (
	KindOK Kind = iota
	KindUnrecognized
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindUnrecognized:
		return "unrecognized"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the outcome of Decode.
type Result struct {
	Kind Kind
	Wire Wire
	// Path locates the unrecognized member from the document root.
	Path []string
	// Cause explains a malformed document.
	Cause error
}

// Member is the name of the unrecognized member, if any.
func (r Result) Member() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[len(r.Path)-1]
}

// OK reports a usable decode.
func (r Result) OK() bool { return r.Kind == KindOK }

// Err converts a non-OK result into an error.
func (r Result) Err() error {
	switch r.Kind {
	case KindOK:
		return nil
	case KindUnrecognized:
		return fmt.Errorf("%w: %q", ErrUnrecognizedMember, strings.Join(r.Path, "."))
	default:
		if r.Cause == nil {
			return ErrMalformed
		}
		return fmt.Errorf("%w: %w", ErrMalformed, r.Cause)
	}
}

func malformed(format string, args ...any) Result {
	return Result{Kind: KindMalformed, Cause: fmt.Errorf(format, args...)}
}

// PreHook rewrites raw text before it is parsed.
type PreHook func(raw []byte) ([]byte, error)

// Option configures a Decoder.
type Option func(*Decoder)

// WithPreHook appends hook to the normalisation chain.
func WithPreHook(hook PreHook) Option {
	return func(d *Decoder) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithoutStandardize drops the default JWCC normalisation hook.
func WithoutStandardize() Option {
	return func(d *Decoder) {
		d.preHooks = nil
	}
}

// Standardize accepts JSON with comments and trailing commas and rewrites it
// as plain JSON.
func Standardize(raw []byte) ([]byte, error) {
	return hujson.Standardize(bytes.Clone(raw))
}

// Decoder parses persisted documents.
type Decoder struct {
	preHooks []PreHook
}

// NewDecoder builds a decoder. Standardize runs first unless disabled.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{preHooks: []PreHook{Standardize}}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Decoder) normalise(raw []byte) ([]byte, error) {
	current := raw
	for _, hook := range d.preHooks {
		next, err := hook(current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

// Decode parses raw into a Wire. Top-level members other than settingGroups
// are reported as unrecognized; group bodies that are not objects make the
// document malformed.
func (d *Decoder) Decode(raw []byte) Result {
	text, err := d.normalise(raw)
	if err != nil {
		return malformed("normalise: %w", err)
	}
	if !gjson.ValidBytes(text) {
		return malformed("invalid json")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(text, &top); err != nil {
		return malformed("document must be an object: %w", err)
	}

	members := make([]string, 0, len(top))
	for key := range top {
		members = append(members, key)
	}
	sort.Strings(members)
	for _, key := range members {
		if key != GroupsKey {
			return Result{Kind: KindUnrecognized, Path: []string{key}}
		}
	}

	wire := Wire{SettingGroups: map[string]map[string]json.RawMessage{}}
	body, ok := top[GroupsKey]
	if !ok || isNull(body) {
		return Result{Kind: KindOK, Wire: wire}
	}

	var groups map[string]json.RawMessage
	if err := json.Unmarshal(body, &groups); err != nil {
		return malformed("%s must be an object: %w", GroupsKey, err)
	}
	for code, groupBody := range groups {
		if isNull(groupBody) {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(groupBody, &fields); err != nil {
			return malformed("group %q must be an object: %w", code, err)
		}
		wire.SettingGroups[code] = fields
	}
	return Result{Kind: KindOK, Wire: wire}
}

// Strip removes the member at path from raw and renders the remaining tree.
func (d *Decoder) Strip(raw []byte, path ...string) ([]byte, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("codec: strip requires a member path")
	}
	text, err := d.normalise(raw)
	if err != nil {
		return nil, fmt.Errorf("codec: strip: %w", err)
	}
	out, err := stripMember(text, path)
	if err != nil {
		return nil, fmt.Errorf("codec: strip %q: %w", strings.Join(path, "."), err)
	}
	return out, nil
}

func stripMember(text []byte, path []string) ([]byte, error) {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(text, &node); err != nil {
		return nil, err
	}
	if len(path) == 1 {
		delete(node, path[0])
		return json.Marshal(node)
	}
	child, ok := node[path[0]]
	if !ok {
		return text, nil
	}
	stripped, err := stripMember(child, path[1:])
	if err != nil {
		return nil, err
	}
	node[path[0]] = stripped
	return json.Marshal(node)
}

// Encode renders w in canonical form: sorted keys, two-space indent and a
// trailing newline.
func Encode(w Wire) ([]byte, error) {
	if w.SettingGroups == nil {
		w.SettingGroups = map[string]map[string]json.RawMessage{}
	}
	out, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}
	return append(out, '\n'), nil
}

func isNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
