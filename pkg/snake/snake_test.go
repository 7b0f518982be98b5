package snake

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestParseBool(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    bool
		wantErr bool
	}{
		"yes":   {in: "yes", want: true},
		"Y":     {in: "Y", want: true},
		"no":    {in: "no"},
		"false": {in: "false"},
		"junk":  {in: "maybe", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseBool(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %t, want %t", got, tc.want)
			}
		})
	}
}

func TestPromptFlagStringSkipsSetFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "login"}
	email := ""
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	if err := cmd.Flags().Set("email", "a@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := PromptFlagString(cmd, "email", nil); err != nil {
		t.Fatalf("PromptFlagString: %v", err)
	}
	if email != "a@example.com" {
		t.Fatalf("email = %q", email)
	}
	if err := PromptFlagString(cmd, "missing", nil); err == nil {
		t.Fatal("want error for unknown flag")
	}
}

func TestSelectEmpty(t *testing.T) {
	if _, err := Select(&cobra.Command{}, "Plan", nil, 0); err == nil {
		t.Fatal("want error")
	}
}
