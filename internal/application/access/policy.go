package access

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/baechuer/campus-coord/internal/domain"
)

type level int

const (
	levelAuthenticated level = iota
	levelAnonymous
	levelRoles
)

// Requirement is what a route demands of the caller.
type Requirement struct {
	level level
	roles []domain.Role
}

func Anonymous() Requirement     { return Requirement{level: levelAnonymous} }
func Authenticated() Requirement { return Requirement{level: levelAuthenticated} }

func RolesOf(roles ...domain.Role) Requirement {
	return Requirement{level: levelRoles, roles: roles}
}

func (r Requirement) IsAnonymous() bool { return r.level == levelAnonymous }

func (r Requirement) String() string {
	switch r.level {
	case levelAnonymous:
		return "anonymous"
	case levelRoles:
		return r.rolesString()
	default:
		return "authenticated"
	}
}

func (r Requirement) rolesString() string {
	names := make([]string, len(r.roles))
	for i, role := range r.roles {
		names[i] = role.String()
	}
	return strings.Join(names, ",")
}

// Check decides whether the caller satisfies r. authErr is the token
// verification failure, if any, and is reported instead of a generic 401.
func (r Requirement) Check(p domain.Principal, authenticated bool, authErr error) error {
	if r.level == levelAnonymous {
		return nil
	}
	if !authenticated {
		if authErr != nil {
			return authErr
		}
		return domain.ErrTokenMissing()
	}
	if r.level == levelAuthenticated {
		return nil
	}
	for _, role := range r.roles {
		if p.Role == role {
			return nil
		}
	}
	return domain.ErrInsufficientRole(r.rolesString())
}

// Rule binds a method and path pattern to a requirement. Method "*" matches
// any method. Patterns use literal segments, {param} segments and an optional
// trailing "*" that matches any remaining segments.
type Rule struct {
	Method  string
	Pattern string
	Require Requirement
}

type compiledRule struct {
	Rule
	segments []string
	wildcard bool
	literals int
	order    int
}

func (c compiledRule) match(method string, segs []string) bool {
	if c.Method != "*" && c.Method != method {
		return false
	}
	if c.wildcard {
		if len(segs) < len(c.segments) {
			return false
		}
	} else if len(segs) != len(c.segments) {
		return false
	}
	for i, s := range c.segments {
		if isParam(s) {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if s != segs[i] {
			return false
		}
	}
	return true
}

// Policy is an immutable route table, safe for concurrent use.
type Policy struct {
	rules []compiledRule
}

func NewPolicy(rules []Rule) (*Policy, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.Method == "" || !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("access: rule %d: bad method or pattern %q %q", i, r.Method, r.Pattern)
		}
		segs := splitPath(r.Pattern)
		c := compiledRule{Rule: r, order: i}
		if n := len(segs); n > 0 && segs[n-1] == "*" {
			c.wildcard = true
			segs = segs[:n-1]
		}
		for _, s := range segs {
			if s == "*" {
				return nil, fmt.Errorf("access: rule %d: wildcard only allowed at the end of %q", i, r.Pattern)
			}
			if !isParam(s) {
				c.literals++
			}
		}
		c.segments = segs
		compiled = append(compiled, c)
	}

	// most specific first: more literal segments, then exact over wildcard, then declaration order
	sort.SliceStable(compiled, func(i, j int) bool {
		a, b := compiled[i], compiled[j]
		if a.literals != b.literals {
			return a.literals > b.literals
		}
		if a.wildcard != b.wildcard {
			return !a.wildcard
		}
		return a.order < b.order
	})
	return &Policy{rules: compiled}, nil
}

// Match returns the requirement for a request; unmatched routes need authentication.
func (p *Policy) Match(method, path string) Requirement {
	segs := splitPath(path)
	for _, r := range p.rules {
		if r.match(method, segs) {
			return r.Require
		}
	}
	return Authenticated()
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func isParam(s string) bool {
	return len(s) > 2 && s[0] == '{' && s[len(s)-1] == '}'
}

// DefaultRules is the route table of the HTTP API.
func DefaultRules() []Rule {
	managers := RolesOf(domain.RoleOrganizer, domain.RoleAdmin)
	admin := RolesOf(domain.RoleAdmin)

	return []Rule{
		{Method: "*", Pattern: "/auth/*", Require: Anonymous()},
		{Method: http.MethodGet, Pattern: "/healthz", Require: Anonymous()},
		{Method: http.MethodGet, Pattern: "/metrics", Require: Anonymous()},

		{Method: http.MethodPost, Pattern: "/events", Require: managers},
		{Method: http.MethodDelete, Pattern: "/events/{id}", Require: managers},
		{Method: http.MethodPut, Pattern: "/events/{id}/approve", Require: admin},
		{Method: http.MethodPut, Pattern: "/events/{id}/reject", Require: admin},
		{Method: "*", Pattern: "/admin/*", Require: admin},
	}
}

// MustDefaultPolicy panics only if DefaultRules is malformed.
func MustDefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRules())
	if err != nil {
		panic(err)
	}
	return p
}
