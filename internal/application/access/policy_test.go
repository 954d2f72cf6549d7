package access

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/campus-coord/internal/domain"
)

func TestPolicy_DefaultRules(t *testing.T) {
	p := MustDefaultPolicy()

	cases := []struct {
		method, path string
		want         string
	}{
		{http.MethodPost, "/auth/login", "anonymous"},
		{http.MethodPost, "/auth/refresh", "anonymous"},
		{http.MethodGet, "/healthz", "anonymous"},
		{http.MethodPost, "/healthz", "authenticated"},
		{http.MethodPost, "/events", "organizer,admin"},
		{http.MethodGet, "/events", "authenticated"},
		{http.MethodPut, "/events/e1/approve", "admin"},
		{http.MethodPut, "/events/e1/reject", "admin"},
		{http.MethodDelete, "/events/e1", "organizer,admin"},
		{http.MethodPost, "/events/e1/register", "authenticated"},
		{http.MethodDelete, "/events/e1/register", "authenticated"},
		{http.MethodGet, "/admin/events/pending", "admin"},
		{http.MethodPost, "/bookings", "authenticated"},
		{http.MethodGet, "/unknown/route", "authenticated"},
	}

	for _, c := range cases {
		t.Run(c.method+" "+c.path, func(t *testing.T) {
			assert.Equal(t, c.want, p.Match(c.method, c.path).String())
		})
	}
}

func TestPolicy_MostSpecificWins(t *testing.T) {
	p, err := NewPolicy([]Rule{
		{Method: "*", Pattern: "/events/*", Require: RolesOf(domain.RoleAdmin)},
		{Method: "*", Pattern: "/events/{id}", Require: Authenticated()},
		{Method: "*", Pattern: "/events/public", Require: Anonymous()},
		{Method: "*", Pattern: "/events/{id}/*", Require: RolesOf(domain.RoleOrganizer)},
	})
	require.NoError(t, err)

	t.Run("literal_beats_param", func(t *testing.T) {
		assert.True(t, p.Match("GET", "/events/public").IsAnonymous())
	})

	t.Run("exact_beats_wildcard_with_same_literals", func(t *testing.T) {
		assert.Equal(t, "authenticated", p.Match("GET", "/events/e1").String())
	})

	t.Run("wildcard_catches_deeper_paths", func(t *testing.T) {
		assert.Equal(t, "admin", p.Match("GET", "/events/e1/x/y").String())
	})

	t.Run("declaration_order_breaks_ties", func(t *testing.T) {
		p2, err := NewPolicy([]Rule{
			{Method: "*", Pattern: "/a/{x}", Require: Anonymous()},
			{Method: "*", Pattern: "/a/{y}", Require: RolesOf(domain.RoleAdmin)},
		})
		require.NoError(t, err)
		assert.True(t, p2.Match("GET", "/a/1").IsAnonymous())
	})
}

func TestNewPolicy_RejectsBadPatterns(t *testing.T) {
	_, err := NewPolicy([]Rule{{Method: "GET", Pattern: "/a/*/b"}})
	assert.Error(t, err)

	_, err = NewPolicy([]Rule{{Method: "GET", Pattern: "relative"}})
	assert.Error(t, err)
}

func TestRequirement_Check(t *testing.T) {
	student := domain.Principal{SubjectID: "s1", Role: domain.RoleStudent}
	admin := domain.Principal{SubjectID: "a1", Role: domain.RoleAdmin}

	t.Run("anonymous_ignores_token_errors", func(t *testing.T) {
		assert.NoError(t, Anonymous().Check(domain.Principal{}, false, domain.ErrTokenExpired()))
	})

	t.Run("missing_token", func(t *testing.T) {
		err := Authenticated().Check(domain.Principal{}, false, nil)
		assert.True(t, domain.Is(err, "token_missing"))
	})

	t.Run("token_error_is_reported", func(t *testing.T) {
		err := Authenticated().Check(domain.Principal{}, false, domain.ErrTokenExpired())
		assert.True(t, domain.Is(err, "token_expired"))
	})

	t.Run("wrong_role_is_forbidden", func(t *testing.T) {
		err := RolesOf(domain.RoleAdmin).Check(student, true, nil)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("matching_role_passes", func(t *testing.T) {
		assert.NoError(t, RolesOf(domain.RoleOrganizer, domain.RoleAdmin).Check(admin, true, nil))
	})
}
