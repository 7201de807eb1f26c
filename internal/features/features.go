package features

import "strings"

// Action is the optional packaging sub-action requested by the first argument.
type Action int

const (
	ActionNone Action = iota
	ActionBuild
	ActionDev
)

// SubCommand returns the packaging tool sub-command for the action.
func (a Action) SubCommand() string {
	switch a {
	case ActionBuild:
		return "build"
	case ActionDev:
		return "dev"
	default:
		return ""
	}
}

func (a Action) String() string {
	if s := a.SubCommand(); s != "" {
		return s
	}
	return "none"
}

// Set is the raw invocation argument list interpreted as feature toggles.
type Set struct {
	tokens []string
}

// Parse captures args. The slice is copied; later mutation by the caller has no effect.
func Parse(args []string) Set {
	return Set{tokens: append([]string(nil), args...)}
}

// Has reports whether name appears as a bare token or as --name anywhere in
// the arguments. Matching is exact and case-sensitive.
func (s Set) Has(name string) bool {
	if name == "" {
		return false
	}
	flag := "--" + name
	for _, token := range s.tokens {
		if token == name || token == flag {
			return true
		}
	}
	return false
}

// Action inspects the first token only: --build or --dev request a chained
// packaging run.
func (s Set) Action() Action {
	if len(s.tokens) == 0 {
		return ActionNone
	}
	switch s.tokens[0] {
	case "--build":
		return ActionBuild
	case "--dev":
		return ActionDev
	default:
		return ActionNone
	}
}

// Enabled lists the distinct feature names among the tokens (leading dashes
// stripped), excluding the action token. Used for logging and the ledger.
func (s Set) Enabled() []string {
	seen := make(map[string]struct{}, len(s.tokens))
	var out []string
	for i, token := range s.tokens {
		if i == 0 && s.Action() != ActionNone {
			continue
		}
		name := strings.TrimPrefix(token, "--")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
