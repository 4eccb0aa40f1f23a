package auth

import (
	"testing"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/validation"
)

func TestRegisterRequest_Command(t *testing.T) {
	blank := "   "
	valid := RegisterRequest{FirstName: "Анна", LastName: "Смирнова", MiddleName: &blank, Login: "anna_s", Password: "Sup3r$ecret"}
	cmd, err := valid.Command()
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if cmd.Identity.MiddleName != nil {
		t.Fatalf("blank middle name should become nil")
	}
	if cmd.Identity.Login != "anna_s" || cmd.Password != "Sup3r$ecret" {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	cases := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"missing first name", RegisterRequest{LastName: "B", Login: "abcd", Password: "Passw0rd!"}, "firstName"},
		{"digits in last name", RegisterRequest{FirstName: "A", LastName: "B2", Login: "abcd", Password: "Passw0rd!"}, "lastName"},
		{"short login", RegisterRequest{FirstName: "A", LastName: "B", Login: "abc", Password: "Passw0rd!"}, "login"},
		{"login with dot", RegisterRequest{FirstName: "A", LastName: "B", Login: "a.bcd", Password: "Passw0rd!"}, "login"},
		{"weak password", RegisterRequest{FirstName: "A", LastName: "B", Login: "abcd", Password: "password"}, "password"},
		{"bad manager id", RegisterRequest{FirstName: "A", LastName: "B", Login: "abcd", Password: "Passw0rd!", ManagerID: new(int64)}, "managerId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.req.Command()
			ve, ok := validation.As(err)
			if !ok {
				t.Fatalf("err = %v, want validation error", err)
			}
			if !ve.Has(tc.field) {
				t.Fatalf("fields = %+v, want %s", ve.Fields, tc.field)
			}
		})
	}
}
