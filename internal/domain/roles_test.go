package domain

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"student", RoleStudent, true},
		{"ORGANIZER", RoleOrganizer, true},
		{" Admin ", RoleAdmin, true},
		{"", "", false},
		{"root", "", false},
	}

	for _, c := range cases {
		got, err := ParseRole(c.in)
		if c.ok && err != nil {
			t.Fatalf("ParseRole(%q) unexpected err: %v", c.in, err)
		}
		if !c.ok {
			if !Is(err, "invalid_role") {
				t.Fatalf("ParseRole(%q) expected invalid_role, got %v", c.in, err)
			}
			continue
		}
		if got != c.want {
			t.Fatalf("ParseRole(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestPrincipal_CanManage(t *testing.T) {
	owner := Principal{SubjectID: "u1", Role: RoleOrganizer}
	other := Principal{SubjectID: "u2", Role: RoleOrganizer}
	admin := Principal{SubjectID: "a1", Role: RoleAdmin}
	empty := Principal{Role: RoleOrganizer}

	if !owner.CanManage("u1") {
		t.Fatalf("owner should manage own event")
	}
	if other.CanManage("u1") {
		t.Fatalf("non-owner organizer must not manage")
	}
	if !admin.CanManage("u1") {
		t.Fatalf("admin manages everything")
	}
	if empty.CanManage("") {
		t.Fatalf("empty subject must never match")
	}
}
