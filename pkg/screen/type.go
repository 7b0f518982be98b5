package screen

// Type is the screen the user is looking at.
type Type int

const (
	// Unknown is the zero value. It is never the current screen once the
	// machine has initialized.
	Unknown Type = iota
	Onboarding
	Main
	LimitExceeded
	Login
	Register
	EmailVerification
	Subscription
)

var names = map[Type]string{
	Onboarding:        "ONBOARDING",
	Main:              "MAIN",
	LimitExceeded:     "LIMIT_EXCEEDED",
	Login:             "LOGIN",
	Register:          "REGISTER",
	EmailVerification: "EMAIL_VERIFICATION",
	Subscription:      "SUBSCRIPTION",
}

// Types lists every screen.
func Types() []Type {
	return []Type{Onboarding, Main, LimitExceeded, Login, Register, EmailVerification, Subscription}
}

// String returns the persisted name, e.g. "LIMIT_EXCEEDED".
func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// Valid reports whether t is a member of the screen set.
func (t Type) Valid() bool {
	_, ok := names[t]
	return ok
}

// Parse maps a persisted name back to a Type.
func Parse(s string) (Type, bool) {
	for t, n := range names {
		if n == s {
			return t, true
		}
	}
	return Unknown, false
}
