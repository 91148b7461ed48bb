package session

// Decision is the outcome of evaluating the access gate.
type Decision struct {
	Allow    bool
	Redirect string
}

// Gate decides whether a protected view may be produced.
type Gate struct {
	SignInPath string
}

// NewGate builds a gate redirecting to signInPath.
func NewGate(signInPath string) Gate {
	if signInPath == "" {
		signInPath = "/auth/signin"
	}
	return Gate{SignInPath: signInPath}
}

// Evaluate is a pure function of the current session lookup.
func (g Gate) Evaluate(_ Session, found bool) Decision {
	if !found {
		return Decision{Redirect: g.SignInPath}
	}
	return Decision{Allow: true}
}

// Label names the decision for metrics and logs.
func (d Decision) Label() string {
	if d.Allow {
		return "allow"
	}
	return "redirect"
}
