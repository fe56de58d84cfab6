package policy

import (
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mkuran/gatewarden/internal/core"
)

// Fixed by the API Gateway authorizer contract.
const (
	PolicyVersion = "2012-10-17"
	InvokeAction  = "execute-api:Invoke"

	EffectAllow = "Allow"
	EffectDeny  = "Deny"
)

// Context keys the gateway copies into the downstream request context.
const (
	ContextKeyCode    = "custom_code"
	ContextKeyMessage = "custom_message"
	ContextKeyError   = "error_message"
)

// Messages surfaced through the authorizer context. Consumers key on
// these strings, so they are part of the contract.
const (
	MessageAuthorized   = "authorized token"
	MessageUnauthorized = "unauthorized token"
	MessageNoCredential = "unauthorized token not passed in the payload"
	MessageServerError  = "internal server error"
)

// StatusFor maps a failure kind to the status code surfaced in the
// decision context. Credential defects and transient infrastructure
// problems never share a code.
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindMalformedToken:
		return http.StatusBadRequest
	case core.KindCredentialMissing,
		core.KindKeyNotFound,
		core.KindInvalidSignature,
		core.KindTokenExpired,
		core.KindIssuerMismatch:
		return http.StatusUnauthorized
	default:
		return http.StatusServiceUnavailable
	}
}

// MessageFor returns the caller-facing message for a failure kind.
func MessageFor(kind core.Kind) string {
	switch {
	case kind == core.KindCredentialMissing:
		return MessageNoCredential
	case kind.Transient():
		return MessageServerError
	default:
		return MessageUnauthorized
	}
}

// Builder renders gate outcomes as API Gateway authorizer decisions.
type Builder struct {
	principalClaim   string
	defaultPrincipal string
}

// NewBuilder builds a Builder that reads the policy principal from the
// named claim, falling back to defaultPrincipal when the claim is absent
// and for every denial.
func NewBuilder(principalClaim, defaultPrincipal string) *Builder {
	if principalClaim == "" {
		principalClaim = "sub"
	}
	if defaultPrincipal == "" {
		defaultPrincipal = "user"
	}
	return &Builder{
		principalClaim:   principalClaim,
		defaultPrincipal: defaultPrincipal,
	}
}

// Allow renders the decision admitting a request to resource.
func (b *Builder) Allow(resource string, claims core.Claims) events.APIGatewayCustomAuthorizerResponse {
	principal := claims.String(b.principalClaim)
	if principal == "" {
		principal = b.defaultPrincipal
	}
	return b.render(principal, EffectAllow, resource, http.StatusOK, MessageAuthorized, "")
}

// Deny renders the decision refusing a request to resource. The failure
// kind carried by err selects the status code and message; the error
// text rides along as the diagnostic detail.
func (b *Builder) Deny(resource string, err error) events.APIGatewayCustomAuthorizerResponse {
	kind := core.KindOf(err)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return b.render(b.defaultPrincipal, EffectDeny, resource, StatusFor(kind), MessageFor(kind), detail)
}

func (b *Builder) render(principal, effect, resource string, code int, message, detail string) events.APIGatewayCustomAuthorizerResponse {
	if resource == "" {
		// Keep the policy document well-formed even for requests that
		// carried no method ARN.
		resource = "*"
	}

	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: principal,
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: PolicyVersion,
			Statement: []events.IAMPolicyStatement{
				{
					Action:   []string{InvokeAction},
					Effect:   effect,
					Resource: []string{resource},
				},
			},
		},
		Context: map[string]any{
			ContextKeyCode:    code,
			ContextKeyMessage: message,
			ContextKeyError:   detail,
		},
	}
}
