package core

import "time"

// Claims is the decoded payload of a validated token, keyed by claim
// name. Values keep the types the JSON decoder produced.
type Claims map[string]any

// String returns the named claim if it is a string, otherwise "".
func (c Claims) String(name string) string {
	v, _ := c[name].(string)
	return v
}

// Subject returns the standard "sub" claim.
func (c Claims) Subject() string { return c.String("sub") }

// Issuer returns the standard "iss" claim.
func (c Claims) Issuer() string { return c.String("iss") }

// Expiry returns the "exp" claim as a time, or the zero time if the
// claim is absent or not numeric.
func (c Claims) Expiry() time.Time {
	switch v := c["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case int64:
		return time.Unix(v, 0)
	}
	return time.Time{}
}
