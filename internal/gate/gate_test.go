package gate

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/mkuran/gatewarden/internal/audit"
	"github.com/mkuran/gatewarden/internal/core"
	"github.com/mkuran/gatewarden/internal/policy"
	"github.com/mkuran/gatewarden/internal/token"
	"github.com/mkuran/gatewarden/internal/trust"
)

const (
	testIssuer = "https://issuer.example"
	testArn    = "arn:aws:execute-api:eu-central-1:123456789012:abcdef/live/GET/orders"
)

// harness is a gate wired against a real JWKS endpoint, with the signing
// key to mint test tokens and counters to observe fetch traffic.
type harness struct {
	gate    *Gate
	memory  *audit.MemoryRecorder
	signKey *rsa.PrivateKey
	fetches *atomic.Int32
}

func newHarness(t *testing.T, cached bool) *harness {
	t.Helper()

	signKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	key, err := jwk.FromRaw(&signKey.PublicKey)
	if err != nil {
		t.Fatalf("building jwk: %v", err)
	}
	_ = key.Set(jwk.KeyIDKey, "kid-1")
	_ = key.Set(jwk.AlgorithmKey, "RS256")
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		t.Fatalf("adding key: %v", err)
	}
	payload, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshaling key set: %v", err)
	}

	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	fetcher := trust.NewFetcher(server.URL, time.Second, nil)
	var resolver core.KeyResolver = trust.NewSource(fetcher)
	if cached {
		resolver = trust.NewCachingSource(fetcher, time.Hour)
	}

	memory := audit.NewMemoryRecorder(16)

	return &harness{
		gate: New(
			token.NewValidator(resolver, testIssuer, "RS256"),
			policy.NewBuilder("sub", "user"),
			memory,
		),
		memory:  memory,
		signKey: signKey,
		fetches: &fetches,
	}
}

func (h *harness) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(h.signKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func request(arn, header string) events.APIGatewayCustomAuthorizerRequestTypeRequest {
	req := events.APIGatewayCustomAuthorizerRequestTypeRequest{
		Type:      "REQUEST",
		MethodArn: arn,
	}
	if header != "" {
		req.Headers = map[string]string{"Authorization": header}
	}
	return req
}

func contextCode(decision events.APIGatewayCustomAuthorizerResponse) any {
	return decision.Context[policy.ContextKeyCode]
}

func TestGate_Allow(t *testing.T) {
	h := newHarness(t, false)

	tok := h.sign(t, jwt.MapClaims{
		"sub": "user-42",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	got := h.gate.Authorize(context.Background(), request(testArn, "Bearer "+tok))

	want := events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: "user-42",
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: "2012-10-17",
			Statement: []events.IAMPolicyStatement{
				{
					Action:   []string{"execute-api:Invoke"},
					Effect:   "Allow",
					Resource: []string{testArn},
				},
			},
		},
		Context: map[string]any{
			"custom_code":    http.StatusOK,
			"custom_message": "authorized token",
			"error_message":  "",
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Authorize() mismatch (-want +got):\n%s", diff)
	}
}

func TestGate_DenyOutcomes(t *testing.T) {
	h := newHarness(t, false)
	now := time.Now()

	tests := []struct {
		name        string
		header      string
		wantKind    core.Kind
		wantCode    int
		wantMessage string
	}{
		{
			name:        "No Credential",
			header:      "",
			wantKind:    core.KindCredentialMissing,
			wantCode:    http.StatusUnauthorized,
			wantMessage: "unauthorized token not passed in the payload",
		},
		{
			name:        "Wrong Scheme",
			header:      "Basic dXNlcjpwYXNz",
			wantKind:    core.KindCredentialMissing,
			wantCode:    http.StatusUnauthorized,
			wantMessage: "unauthorized token not passed in the payload",
		},
		{
			name:        "Garbage Token",
			header:      "Bearer not-a-jwt",
			wantKind:    core.KindMalformedToken,
			wantCode:    http.StatusBadRequest,
			wantMessage: "unauthorized token",
		},
		{
			name: "Expired Token",
			header: "Bearer " + h.sign(t, jwt.MapClaims{
				"sub": "user-42",
				"iss": testIssuer,
				"exp": now.Add(-time.Hour).Unix(),
			}),
			wantKind:    core.KindTokenExpired,
			wantCode:    http.StatusUnauthorized,
			wantMessage: "unauthorized token",
		},
		{
			name: "Wrong Issuer",
			header: "Bearer " + h.sign(t, jwt.MapClaims{
				"sub": "user-42",
				"iss": "https://evil.example",
				"exp": now.Add(time.Hour).Unix(),
			}),
			wantKind:    core.KindIssuerMismatch,
			wantCode:    http.StatusUnauthorized,
			wantMessage: "unauthorized token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.gate.Authorize(context.Background(), request(testArn, tt.header))

			if effect := got.PolicyDocument.Statement[0].Effect; effect != "Deny" {
				t.Errorf("Effect = %q, want Deny", effect)
			}
			if got.PrincipalID != "user" {
				t.Errorf("PrincipalID = %q, want the default principal", got.PrincipalID)
			}
			if resource := got.PolicyDocument.Statement[0].Resource[0]; resource != testArn {
				t.Errorf("Resource = %q, the method ARN must survive denial", resource)
			}
			if code := contextCode(got); code != tt.wantCode {
				t.Errorf("context code = %v, want %d", code, tt.wantCode)
			}
			if msg := got.Context[policy.ContextKeyMessage]; msg != tt.wantMessage {
				t.Errorf("context message = %v, want %q", msg, tt.wantMessage)
			}

			recent := h.memory.Recent(1)
			if len(recent) != 1 || recent[0].FailureKind != tt.wantKind {
				t.Errorf("recorded events = %+v, want one with kind %v", recent, tt.wantKind)
			}
		})
	}
}

func TestGate_MissingCredentialSkipsKeySetFetch(t *testing.T) {
	h := newHarness(t, false)

	h.gate.Authorize(context.Background(), request(testArn, ""))

	if got := h.fetches.Load(); got != 0 {
		t.Errorf("fetch count = %d, requests without credentials must not touch the key set", got)
	}
}

func TestGate_KeySetOutageIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	memory := audit.NewMemoryRecorder(4)
	g := New(
		token.NewValidator(trust.NewSource(trust.NewFetcher(server.URL, time.Second, nil)), testIssuer, "RS256"),
		policy.NewBuilder("sub", "user"),
		memory,
	)

	// structurally fine token, the outage must be reported, not the token
	header := "Bearer " + mintUnverifiableToken(t)
	got := g.Authorize(context.Background(), request(testArn, header))

	if effect := got.PolicyDocument.Statement[0].Effect; effect != "Deny" {
		t.Errorf("Effect = %q, want Deny", effect)
	}
	if code := contextCode(got); code != http.StatusServiceUnavailable {
		t.Errorf("context code = %v, want 503", code)
	}
	if msg := got.Context[policy.ContextKeyMessage]; msg != "internal server error" {
		t.Errorf("context message = %v, want %q", msg, "internal server error")
	}

	recent := memory.Recent(1)
	if len(recent) != 1 || recent[0].FailureKind != core.KindKeySetUnavailable {
		t.Errorf("recorded failure = %+v, want key_set_unavailable", recent)
	}
}

// mintUnverifiableToken signs with a throwaway key; only the shape
// matters, verification is expected to fail upstream of the signature.
func mintUnverifiableToken(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "user-42",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestGate_RepeatedEvaluationIsStable(t *testing.T) {
	h := newHarness(t, true)

	tok := h.sign(t, jwt.MapClaims{
		"sub": "user-42",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req := request(testArn, "Bearer "+tok)

	first := h.gate.Authorize(context.Background(), req)
	second := h.gate.Authorize(context.Background(), req)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("decisions differ between evaluations:\n%s", diff)
	}
	if got := h.fetches.Load(); got != 1 {
		t.Errorf("fetch count = %d, the cached source should serve the second evaluation", got)
	}
}

func TestGate_EmptyMethodArn(t *testing.T) {
	h := newHarness(t, false)

	got := h.gate.Authorize(context.Background(), request("", ""))

	resources := got.PolicyDocument.Statement[0].Resource
	if len(resources) != 1 || resources[0] != "*" {
		t.Errorf("Resource = %v, want [\"*\"]", resources)
	}
}

func TestGate_RecordsDecisionEvents(t *testing.T) {
	h := newHarness(t, false)

	ctx := core.WithCorrelationID(context.Background(), "corr-123")
	tok := h.sign(t, jwt.MapClaims{
		"sub": "user-42",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	h.gate.Authorize(ctx, request(testArn, "Bearer "+tok))

	recent := h.memory.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("recorded %d events, want 1", len(recent))
	}

	event := recent[0]
	if event.ID == "" || event.Time.IsZero() {
		t.Errorf("event not stamped: %+v", event)
	}
	if event.CorrelationID != "corr-123" {
		t.Errorf("CorrelationID = %q, want the request's", event.CorrelationID)
	}
	if event.Effect != "Allow" {
		t.Errorf("Effect = %q, want Allow", event.Effect)
	}
	if event.Principal != "user-42" {
		t.Errorf("Principal = %q", event.Principal)
	}
	if event.Resource != testArn {
		t.Errorf("Resource = %q", event.Resource)
	}
	if event.KeyID != "kid-1" {
		t.Errorf("KeyID = %q, want kid-1", event.KeyID)
	}
	if event.FailureKind != "" || event.Error != "" {
		t.Errorf("allowed event carries failure data: %+v", event)
	}
}

// panicValidator stands in for an unexpected defect inside evaluation.
type panicValidator struct{}

func (panicValidator) Validate(context.Context, string) (core.Claims, error) {
	panic("unexpected defect")
}

func TestGate_RecoversFromPanic(t *testing.T) {
	memory := audit.NewMemoryRecorder(4)
	g := New(panicValidator{}, policy.NewBuilder("sub", "user"), memory)

	got := g.Authorize(context.Background(), request(testArn, "Bearer x.y.z"))

	if effect := got.PolicyDocument.Statement[0].Effect; effect != "Deny" {
		t.Errorf("Effect = %q, want Deny", effect)
	}
	if code := contextCode(got); code != http.StatusServiceUnavailable {
		t.Errorf("context code = %v, want 503", code)
	}

	recent := memory.Recent(1)
	if len(recent) != 1 || recent[0].FailureKind != core.KindInternal {
		t.Errorf("recorded failure = %+v, want internal", recent)
	}
}

func TestGate_NilRecorder(t *testing.T) {
	g := New(panicValidator{}, policy.NewBuilder("sub", "user"), nil)

	// must not panic on the recorder either
	got := g.Authorize(context.Background(), request(testArn, "Bearer x.y.z"))
	if effect := got.PolicyDocument.Statement[0].Effect; effect != "Deny" {
		t.Errorf("Effect = %q, want Deny", effect)
	}
}
