package gate

import (
	"strings"

	"github.com/mkuran/gatewarden/internal/core"
)

// bearerScheme per RFC 6750; matched case-insensitively.
const bearerScheme = "bearer"

// BearerToken pulls the bearer credential out of an authorizer request's
// headers. The header name is matched case-insensitively (API Gateway
// forwards whatever casing the client sent); the value must be the
// scheme and the token joined by exactly one space.
func BearerToken(headers map[string]string) (string, error) {
	value := headerValue(headers, "Authorization")
	if value == "" {
		return "", core.Failf(core.KindCredentialMissing, "no authorization header in request")
	}

	parts := strings.Split(value, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", core.Failf(core.KindCredentialMissing, "authorization header is not a bearer credential")
	}
	if parts[1] == "" {
		return "", core.Failf(core.KindCredentialMissing, "bearer credential is empty")
	}
	return parts[1], nil
}

func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
