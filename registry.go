package cyberchef

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

//go:embed data/operation_schema.json
var operationSchemaJSON []byte

// OperationArg describes one argument slot of an operation, as declared by
// the operation library's own metadata.
type OperationArg struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Value        any      `json:"value"`
	ToggleValues []string `json:"toggleValues,omitempty"`
}

// Operation is the schema entry for a single operation: its identity, its
// dish input/output types, and its argument declarations.
type Operation struct {
	Name        string         `json:"name"`
	Module      string         `json:"module"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	InputType   string         `json:"inputType"`
	OutputType  string         `json:"outputType"`
	Args        []OperationArg `json:"args"`
}

// OperationRegistry holds the embedded operation schema snapshot and answers
// lookup, validation and search queries against it. The registry is immutable
// after load and safe for concurrent readers.
type OperationRegistry struct {
	version   string
	favorites []string
	ops       []Operation
	byName    map[string]*Operation
}

type schemaFile struct {
	Version    string      `json:"version"`
	Favorites  []string    `json:"favorites"`
	Operations []Operation `json:"operations"`
}

// NewOperationRegistry parses the embedded schema snapshot.
func NewOperationRegistry() (*OperationRegistry, error) {
	var f schemaFile
	if err := json.Unmarshal(operationSchemaJSON, &f); err != nil {
		return nil, fmt.Errorf("parsing operation schema: %w", err)
	}
	reg := &OperationRegistry{
		version:   f.Version,
		favorites: f.Favorites,
		ops:       f.Operations,
		byName:    make(map[string]*Operation, len(f.Operations)),
	}
	for i := range reg.ops {
		reg.byName[reg.ops[i].Name] = &reg.ops[i]
	}
	return reg, nil
}

// Version reports the operation library version the schema was generated
// from.
func (r *OperationRegistry) Version() string { return r.version }

// Favorites returns the curated favorite operation names.
func (r *OperationRegistry) Favorites() []string {
	out := make([]string, len(r.favorites))
	copy(out, r.favorites)
	return out
}

// Operations returns all schema entries in declaration order.
func (r *OperationRegistry) Operations() []Operation {
	out := make([]Operation, len(r.ops))
	copy(out, r.ops)
	return out
}

// Lookup finds an operation by exact name.
func (r *OperationRegistry) Lookup(name string) (*Operation, error) {
	op, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, name)
	}
	return op, nil
}

// ValidateStep checks a recipe step against the schema: the operation must
// exist, every supplied argument must be declared, and its value must suit
// the declared argument type.
func (r *OperationRegistry) ValidateStep(step OperationStep) (*Operation, error) {
	op, err := r.Lookup(step.Name)
	if err != nil {
		return nil, err
	}
	for name, value := range step.Args {
		arg := op.arg(name)
		if arg == nil {
			return nil, fmt.Errorf("%w: %q has no argument %q", ErrInvalidArgument, op.Name, name)
		}
		if err := validateArgValue(arg, value); err != nil {
			return nil, fmt.Errorf("%w: %q argument %q: %v", ErrInvalidArgument, op.Name, name, err)
		}
	}
	return op, nil
}

func (op *Operation) arg(name string) *OperationArg {
	for i := range op.Args {
		if op.Args[i].Name == name {
			return &op.Args[i]
		}
	}
	return nil
}

func validateArgValue(arg *OperationArg, value any) error {
	switch arg.Type {
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
	case "number":
		switch value.(type) {
		case int, int64, float64:
		default:
			return fmt.Errorf("want number, got %T", value)
		}
	case "string", "shortString", "binaryString", "text", "editableOption", "editableOptionShort":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("want string, got %T", value)
		}
	case "option":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want option string, got %T", value)
		}
		choices, ok := arg.Value.([]any)
		if !ok {
			return nil
		}
		for _, c := range choices {
			if cs, ok := c.(string); ok && cs == s {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of the declared options", s)
	case "toggleString":
		// Accept either a bare string or {string, option}.
		switch v := value.(type) {
		case string:
		case map[string]any:
			if _, ok := v["string"].(string); !ok {
				return fmt.Errorf("toggleString object needs a \"string\" key")
			}
			if opt, ok := v["option"]; ok {
				os, ok := opt.(string)
				if !ok {
					return fmt.Errorf("toggleString \"option\" must be a string")
				}
				found := false
				for _, t := range arg.ToggleValues {
					if t == os {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("%q is not a declared toggle value", os)
				}
			}
		default:
			return fmt.Errorf("want string or {string, option}, got %T", value)
		}
	default:
		// Unknown arg kinds pass through; the operation library validates
		// them again engine-side.
	}
	return nil
}

// wireArgs renders a step's argument map as the positional argument list the
// operation library expects, filling unsupplied slots with schema defaults.
func (r *OperationRegistry) wireArgs(op *Operation, args map[string]any) []any {
	out := make([]any, len(op.Args))
	for i, arg := range op.Args {
		if v, ok := args[arg.Name]; ok {
			out[i] = wireArgValue(&op.Args[i], v)
			continue
		}
		out[i] = defaultArgValue(&op.Args[i])
	}
	return out
}

func wireArgValue(arg *OperationArg, value any) any {
	if arg.Type == "toggleString" {
		switch v := value.(type) {
		case string:
			opt := "UTF8"
			if len(arg.ToggleValues) > 0 {
				opt = arg.ToggleValues[0]
			}
			return map[string]any{"string": v, "option": opt}
		case map[string]any:
			if _, ok := v["option"]; !ok {
				opt := "UTF8"
				if len(arg.ToggleValues) > 0 {
					opt = arg.ToggleValues[0]
				}
				return map[string]any{"string": v["string"], "option": opt}
			}
			return v
		}
	}
	return value
}

func defaultArgValue(arg *OperationArg) any {
	switch arg.Type {
	case "option":
		if choices, ok := arg.Value.([]any); ok && len(choices) > 0 {
			return choices[0]
		}
		return arg.Value
	case "toggleString":
		opt := "UTF8"
		if len(arg.ToggleValues) > 0 {
			opt = arg.ToggleValues[0]
		}
		s, _ := arg.Value.(string)
		return map[string]any{"string": s, "option": opt}
	default:
		return arg.Value
	}
}

// SearchResult pairs an operation with its match score.
type SearchResult struct {
	Op    *Operation
	Score int
}

// Search ranks operations against a free-text query. Exact name matches rank
// above prefix matches, then substring, then word-boundary, then acronym
// subsequence matches against the name's initials. Ties break on name.
func (r *OperationRegistry) Search(query string, limit int) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var results []SearchResult
	for i := range r.ops {
		score := matchScore(&r.ops[i], q)
		if score > 0 {
			results = append(results, SearchResult{Op: &r.ops[i], Score: score})
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Op.Name < results[b].Op.Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func matchScore(op *Operation, q string) int {
	name := strings.ToLower(op.Name)
	switch {
	case name == q:
		return 100
	case strings.HasPrefix(name, q):
		return 80
	case strings.Contains(name, q):
		return 60
	}
	for _, w := range splitWords(op.Name) {
		if strings.HasPrefix(strings.ToLower(w), q) {
			return 50
		}
	}
	if acronymMatch(op.Name, q) {
		return 30
	}
	if strings.Contains(strings.ToLower(op.Description), q) {
		return 10
	}
	return 0
}

// splitWords breaks an operation name into words on spaces, punctuation and
// lower-to-upper case boundaries, so "FromBase64" yields From, Base, 64.
func splitWords(name string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	prev := rune(0)
	for _, c := range name {
		switch {
		case unicode.IsSpace(c) || c == '-' || c == '_' || c == '/' || c == '(' || c == ')':
			flush()
		case unicode.IsUpper(c) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			cur.WriteRune(c)
		case unicode.IsDigit(c) && unicode.IsLetter(prev):
			flush()
			cur.WriteRune(c)
		default:
			cur.WriteRune(c)
		}
		prev = c
	}
	flush()
	return words
}

// acronymMatch reports whether the query is a subsequence of the name's word
// initials, so "fb" matches "From Base64".
func acronymMatch(name, q string) bool {
	words := splitWords(name)
	if len(words) < 2 {
		return false
	}
	initials := make([]rune, 0, len(words))
	for _, w := range words {
		r := []rune(strings.ToLower(w))
		initials = append(initials, r[0])
	}
	qi := 0
	qr := []rune(q)
	for _, c := range initials {
		if qi < len(qr) && qr[qi] == c {
			qi++
		}
	}
	return qi == len(qr)
}
