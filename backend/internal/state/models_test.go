package state

import "testing"

func TestRoleForSpeaker(t *testing.T) {
	if got := RoleForSpeaker(0); got != RoleUser {
		t.Errorf("speaker 0 = %q, want %q", got, RoleUser)
	}
	if got := RoleForSpeaker(1); got != RoleOther {
		t.Errorf("speaker 1 = %q, want %q", got, RoleOther)
	}
	if got := RoleForSpeaker(7); got != RoleOther {
		t.Errorf("speaker 7 = %q, want %q", got, RoleOther)
	}
}

func TestRelationWellFormed(t *testing.T) {
	cases := []struct {
		rel  Relation
		want bool
	}{
		{Relation{Source: "A", Target: "B", Relation: "knows"}, true},
		{Relation{Source: "A", Target: "B"}, true},
		{Relation{Source: "", Target: "B", Relation: "knows"}, false},
		{Relation{Source: "A", Target: "  ", Relation: "knows"}, false},
	}
	for _, c := range cases {
		if got := c.rel.WellFormed(); got != c.want {
			t.Errorf("WellFormed(%+v) = %v, want %v", c.rel, got, c.want)
		}
	}
}

func TestSessionLogEntryValidate(t *testing.T) {
	valid := SessionLogEntry{SessionID: "s1", Role: RoleAgent, Content: "hi"}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	noSession := SessionLogEntry{Role: RoleUser, Content: "hi"}
	if err := noSession.Validate(); err == nil {
		t.Error("expected error for missing session id")
	}

	badRole := SessionLogEntry{SessionID: "s1", Role: "narrator", Content: "hi"}
	if err := badRole.Validate(); err == nil {
		t.Error("expected error for unknown role")
	}
}
