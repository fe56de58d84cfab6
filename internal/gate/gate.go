package gate

import (
	"context"
	"runtime/debug"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkuran/gatewarden/internal/audit"
	"github.com/mkuran/gatewarden/internal/core"
	"github.com/mkuran/gatewarden/internal/policy"
	"github.com/mkuran/gatewarden/internal/token"
)

// Gate evaluates API Gateway authorizer invocations. Every invocation
// gets a decision: evaluation failures of any kind become Deny decisions
// rather than returned errors.
type Gate struct {
	validator core.TokenValidator
	decisions *policy.Builder
	recorder  core.Recorder
}

// New wires a Gate from its parts. A nil recorder records nothing.
func New(validator core.TokenValidator, decisions *policy.Builder, recorder core.Recorder) *Gate {
	if recorder == nil {
		recorder = audit.NewNoopRecorder()
	}
	return &Gate{
		validator: validator,
		decisions: decisions,
		recorder:  recorder,
	}
}

// Authorize evaluates one invocation. It never returns an error and
// never panics; infrastructure failures surface inside the decision.
func (g *Gate) Authorize(ctx context.Context, request events.APIGatewayCustomAuthorizerRequestTypeRequest) (decision events.APIGatewayCustomAuthorizerResponse) {
	logger := log.Ctx(ctx)

	event := core.NewEvent()
	event.CorrelationID = core.CorrelationID(ctx)
	event.Resource = request.MethodArn

	var failure error
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("gate.panic_recovered")
			failure = core.Failf(core.KindInternal, "unexpected evaluation error")
			decision = g.decisions.Deny(request.MethodArn, failure)
		}
		g.finish(ctx, event, decision, failure)
	}()

	raw, err := BearerToken(request.Headers)
	if err != nil {
		failure = err
		decision = g.decisions.Deny(request.MethodArn, err)
		return decision
	}
	event.KeyID = token.KeyID(raw)

	claims, err := g.validator.Validate(ctx, raw)
	if err != nil {
		failure = err
		decision = g.decisions.Deny(request.MethodArn, err)
		return decision
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", claims.Subject())
	})

	decision = g.decisions.Allow(request.MethodArn, claims)
	return decision
}

// finish logs the decision and hands the event to the recorder. Recorder
// errors are logged, never surfaced.
func (g *Gate) finish(ctx context.Context, event core.Event, decision events.APIGatewayCustomAuthorizerResponse, failure error) {
	event.Effect = effectOf(decision)
	event.Principal = decision.PrincipalID
	if failure != nil {
		event.FailureKind = core.KindOf(failure)
		event.Error = failure.Error()
	}

	logger := log.Ctx(ctx)
	line := logger.Info()
	if failure != nil && event.FailureKind.Transient() {
		line = logger.Error()
	}
	line.
		Str("effect", event.Effect).
		Str("resource", event.Resource).
		Str("principal", event.Principal).
		Str("failure_kind", string(event.FailureKind)).
		Msg("gate.decision")

	if err := g.recorder.Record(event); err != nil {
		logger.Warn().Err(err).Msg("failed to write decision event")
	}
}

func effectOf(decision events.APIGatewayCustomAuthorizerResponse) string {
	if len(decision.PolicyDocument.Statement) == 0 {
		return ""
	}
	return decision.PolicyDocument.Statement[0].Effect
}
