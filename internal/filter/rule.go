package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule keeps subreddit names for which an expr-lang expression is true.
//
// The expression sees:
//
//	name     the display name as returned by Reddit
//	lower    name lower-cased
//	length   len(name)
//	is_user  true for u_-prefixed profile pseudo-subreddits
//
// Example: `not is_user && !(lower startsWith "ask")`.
type Rule struct {
	source  string
	program *vm.Program
}

// Compile returns nil for an empty expression; a nil *Rule keeps everything.
func Compile(source string) (*Rule, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.Env(ruleEnv("")), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile subreddit filter: %w", err)
	}
	return &Rule{source: source, program: program}, nil
}

func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Keep reports whether name passes the rule.
func (r *Rule) Keep(name string) (bool, error) {
	if r == nil {
		return true, nil
	}
	result, err := expr.Run(r.program, ruleEnv(name))
	if err != nil {
		return false, fmt.Errorf("evaluate subreddit filter on %q: %w", name, err)
	}
	keep, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("subreddit filter did not return bool")
	}
	return keep, nil
}

func ruleEnv(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":    name,
		"lower":   strings.ToLower(name),
		"length":  len(name),
		"is_user": strings.HasPrefix(strings.ToLower(name), "u_"),
	}
}
