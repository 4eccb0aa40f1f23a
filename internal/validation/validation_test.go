package validation

import (
	"fmt"
	"strings"
	"testing"
)

func TestIsLogin(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"boss", true},
		{"worker_01", true},
		{"a-b-c-d", true},
		{"abc", false},
		{"abcdefghijklmnopq", false},
		{"abcdefghijklmnop", true},
		{"with space", false},
		{"Кирилл", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsLogin(tc.in); got != tc.want {
			t.Fatalf("IsLogin(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsPersonName(t *testing.T) {
	ok := []string{"Anna", "Иван", "Jean-Luc", "O'Brien", "Mary Ann"}
	bad := []string{"", "R2D2", "-Anna", "Anna-", "Anna  Maria", "x@y", strings.Repeat("a", 65)}
	for _, s := range ok {
		if !IsPersonName(s) {
			t.Fatalf("IsPersonName(%q) = false, want true", s)
		}
	}
	for _, s := range bad {
		if IsPersonName(s) {
			t.Fatalf("IsPersonName(%q) = true, want false", s)
		}
	}
}

func TestPasswordProblems(t *testing.T) {
	if p := PasswordProblems("Secret1!"); len(p) != 0 {
		t.Fatalf("expected no problems, got %v", p)
	}
	if p := PasswordProblems("short"); len(p) != 4 {
		t.Fatalf("expected 4 problems for %q, got %v", "short", p)
	}
	if p := PasswordProblems("NoDigits!!"); len(p) != 1 || !strings.Contains(p[0], "digit") {
		t.Fatalf("unexpected problems: %v", p)
	}
	if p := PasswordProblems("nouppercase1!"); len(p) != 1 || !strings.Contains(p[0], "uppercase") {
		t.Fatalf("unexpected problems: %v", p)
	}
	if p := PasswordProblems("NoSymbol12"); len(p) != 1 || !strings.Contains(p[0], "symbol") {
		t.Fatalf("unexpected problems: %v", p)
	}
}

func TestError_ErrAndAs(t *testing.T) {
	var ve Error
	if ve.Err() != nil {
		t.Fatalf("empty error should be nil")
	}
	ve.Add("login", "is required")
	ve.Add("password", "too short")
	err := fmt.Errorf("register: %w", ve.Err())

	got, ok := As(err)
	if !ok {
		t.Fatalf("As did not find *Error")
	}
	if len(got.Fields) != 2 || !got.Has("login") || got.Has("title") {
		t.Fatalf("unexpected fields: %+v", got.Fields)
	}
	if !strings.Contains(err.Error(), "login: is required") {
		t.Fatalf("message = %q", err.Error())
	}
}
