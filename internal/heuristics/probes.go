// internal/heuristics/probes.go
package heuristics

// Probe is one candidate selector for a form element. Probes are tried in
// order; the first visible match wins. The list shape absorbs the A/B
// variants of the signup flow without branching in the driver.
type Probe struct {
	Selector string
	Label    string
}

// EmailProbes are the candidates for the alias/email field, most specific
// first.
func EmailProbes() []Probe {
	return []Probe{
		{Selector: `input[name="MemberName"]`, Label: "member_name"},
		{Selector: `input[type="email"]`, Label: "email_input"},
		{Selector: `input[name="Email"]`, Label: "email_name"},
		{Selector: `#usernameInput`, Label: "username_input"},
	}
}

// PasswordProbes are the candidates for the password field.
func PasswordProbes() []Probe {
	return []Probe{
		{Selector: `input[name="Password"]`, Label: "password_name"},
		{Selector: `input[type="password"]`, Label: "password_input"},
		{Selector: `#passwordInput`, Label: "password_id"},
	}
}

// SubmitProbes are the candidates for the next/continue/submit control.
func SubmitProbes() []Probe {
	return []Probe{
		{Selector: `input[type="submit"]`, Label: "submit_input"},
		{Selector: `button[type="submit"]`, Label: "submit_button"},
		{Selector: `#iSignupAction`, Label: "signup_action"},
		{Selector: `#nextButton`, Label: "next_button"},
	}
}
