package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
)

// Filter wraps a compiled CEL program evaluated per event. The zero Filter
// is disabled and matches everything.
type Filter struct {
	expr    string
	prog    cel.Program
	enabled bool
	now     func() time.Time
}

var env *cel.Env

func init() {
	var err error
	env, err = cel.NewEnv(
		cel.Variable("category", cel.StringType),
		cel.Variable("key", cel.StringType),
		// Parsed record document (map/list/values) for field filtering
		cel.Variable("fields", cel.DynType),
		// serviceIssue.type, or "" when absent
		cel.Variable("issue_type", cel.StringType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		panic(fmt.Sprintf("filter: cel env: %v", err))
	}
}

// Compile parses and type-checks expr. An empty expression yields a disabled
// filter. The expression must evaluate to a bool.
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return Filter{}, fmt.Errorf("filter must evaluate to bool, got %s", out)
	}
	prog, err := env.Program(ast)
	if err != nil {
		return Filter{}, err
	}
	return Filter{expr: expr, prog: prog, enabled: true, now: time.Now}, nil
}

// MustCompile is Compile for static expressions; it panics on error.
func MustCompile(expr string) Filter {
	f, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// Enabled reports whether the filter has an expression.
func (f Filter) Enabled() bool { return f.enabled }

// String returns the source expression.
func (f Filter) String() string { return f.expr }

// Match evaluates the filter against ev. Evaluation errors (missing fields,
// type mismatches) count as no match.
func (f Filter) Match(ev event.Event) bool {
	if !f.enabled {
		return true
	}
	fields := ev.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"category":   ev.Category,
		"key":        cursor.Encode(ev.Key),
		"fields":     fields,
		"issue_type": ev.IssueType(),
		"now_ms":     f.now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
