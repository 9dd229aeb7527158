package filter

import "testing"

func TestCompile_EmptyKeepsEverything(t *testing.T) {
	rule, err := Compile("   ")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if rule != nil {
		t.Fatalf("expected nil rule for empty expression")
	}
	keep, err := rule.Keep("anything")
	if err != nil || !keep {
		t.Fatalf("nil rule Keep = %v, %v", keep, err)
	}
}

func TestCompile_RejectsInvalidExpression(t *testing.T) {
	if _, err := Compile("name startsWith"); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := Compile(`length + 1`); err == nil {
		t.Fatalf("expected non-bool expression to be rejected")
	}
}

func TestRule_DropsUserProfiles(t *testing.T) {
	rule, err := Compile("not is_user")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	cases := []struct {
		name string
		want bool
	}{
		{"golang", true},
		{"u_spez", false},
		{"U_Someone", false},
		{"userexperience", true},
	}
	for _, tc := range cases {
		got, err := rule.Keep(tc.name)
		if err != nil {
			t.Fatalf("Keep(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("Keep(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRule_StringOperators(t *testing.T) {
	rule, err := Compile(`lower startsWith "ask" && length <= 10`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if keep, _ := rule.Keep("AskReddit"); !keep {
		t.Fatalf("expected AskReddit to be kept")
	}
	if keep, _ := rule.Keep("AskHistorians"); keep {
		t.Fatalf("expected AskHistorians (13 chars) to be dropped")
	}
	if rule.String() == "" {
		t.Fatalf("expected rule source to be retained")
	}
}
