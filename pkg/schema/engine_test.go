package schema_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/fake"
	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
	"github.com/JailtonJunior94/pointkit/pkg/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	suite.Suite

	ctx       context.Context
	provider  *fake.Provider
	tracer    *tracer.Tracer
	engine    *schema.Engine
	decorator *point.Decorator
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.provider = fake.NewProvider()

	tr, err := tracer.New(tracer.DefaultConfig("checkout"), s.provider)
	s.Require().NoError(err)
	s.Require().NoError(tr.Connect(s.ctx, nil))
	s.tracer = tr

	s.newEngine()
}

func (s *EngineSuite) newEngine(opts ...schema.Option) {
	engine, err := schema.NewEngine(s.tracer, opts...)
	s.Require().NoError(err)
	s.engine = engine

	d, err := point.New(engine, s.tracer)
	s.Require().NoError(err)
	s.decorator = d
}

func (s *EngineSuite) wrap(name string, sig *point.Signature, fn point.Func, opts ...point.PointOption) *point.Point {
	p, err := s.decorator.Wrap(name, sig, fn, opts...)
	s.Require().NoError(err)
	s.Require().True(p.Instrumented())
	return p
}

func (s *EngineSuite) onlySpan() *fake.FakeSpan {
	spans := s.provider.FakeTracer().GetSpans()
	s.Require().Len(spans, 1)
	return spans[0]
}

func (s *EngineSuite) TestNewEngine_NilTracer() {
	_, err := schema.NewEngine(nil)
	s.ErrorIs(err, schema.ErrNilTracer)
}

func (s *EngineSuite) TestBind_Unknown() {
	_, err := s.engine.Bind("carrier-pigeon", "")
	s.ErrorIs(err, schema.ErrUnknownVariant)

	_, err = s.engine.Bind("", "missing")
	s.ErrorIs(err, schema.ErrUnknownRuleSet)
}

func (s *EngineSuite) TestUnknownVariantLeavesPointUninstrumented() {
	sig := point.MustSignature(point.Arg("a"))
	p, err := s.decorator.Wrap("op", sig, func(_ context.Context, call point.Call) (any, error) {
		return call.Args[0], nil
	}, point.WithVariant("carrier-pigeon"))
	s.Require().NoError(err)
	s.False(p.Instrumented())

	result, err := p.Call(s.ctx, 1)
	s.NoError(err)
	s.Equal(1, result)
	s.Empty(s.provider.FakeTracer().GetSpans())
}

func (s *EngineSuite) TestGenericSpan() {
	sig := point.MustSignature(point.Arg("a"), point.Opt("b", 10))
	var seen observability.Span
	p := s.wrap("add", sig, func(ctx context.Context, call point.Call) (any, error) {
		seen = s.provider.Tracer().SpanFromContext(ctx)
		args, err := sig.Bind(call)
		if err != nil {
			return nil, err
		}
		return args["a"].(int) + args["b"].(int), nil
	})

	result, err := p.Call(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(15, result)

	span := s.onlySpan()
	s.Equal("add", span.Name)
	s.Equal(observability.SpanKindInternal, span.Kind)
	s.True(span.Ended())
	s.Equal(observability.StatusCodeOK, span.StatusCode())
	s.Same(span, seen)

	name, _ := span.Attribute("point.name")
	s.Equal("add", name)
	variant, _ := span.Attribute("point.variant")
	s.Equal(schema.VariantGeneric, variant)
	callID, ok := span.Attribute("point.call_id")
	s.True(ok)
	s.NotEmpty(callID)
}

func (s *EngineSuite) TestCallErrorMarksSpan() {
	boom := errors.New("boom")
	p := s.wrap("fail", point.MustSignature(), func(context.Context, point.Call) (any, error) {
		return nil, boom
	})

	_, err := p.Call(s.ctx)
	s.Same(boom, err)

	span := s.onlySpan()
	s.True(span.Ended())
	s.Equal(observability.StatusCodeError, span.StatusCode())
	s.Equal([]error{boom}, span.RecordedErrors())
}

func (s *EngineSuite) TestHTTPServerExtractsAndTags() {
	sig := point.MustSignature(point.Arg("request"), point.Arg("headers"), point.Opt("request_id", ""))
	p := s.wrap("handler", sig, func(context.Context, point.Call) (any, error) {
		return http.StatusCreated, nil
	}, point.WithVariant(schema.VariantHTTPServer), point.WithRemoteName("/orders/{id}"))

	req, err := http.NewRequest(http.MethodPost, "http://shop.local/orders/42", nil)
	s.Require().NoError(err)
	headers := http.Header{}
	headers.Set("Traceparent", "00-remote-trace-parent-span-01")

	_, err = p.Call(s.ctx, req, headers, "req-1")
	s.Require().NoError(err)

	span := s.onlySpan()
	s.Equal("POST /orders/{id}", span.Name)
	s.Equal(observability.SpanKindServer, span.Kind)

	for key, want := range map[string]any{
		"http.request.method":       http.MethodPost,
		"url.path":                  "/orders/42",
		"server.address":            "shop.local",
		"http.request_id":           "req-1",
		"http.response.status_code": http.StatusCreated,
	} {
		got, ok := span.Attribute(key)
		s.True(ok, key)
		s.Equal(want, got, key)
	}
}

func (s *EngineSuite) TestHTTPServerContinuesRemoteTrace() {
	sig := point.MustSignature(point.Arg("request"), point.Arg("headers"))
	p := s.wrap("handler", sig, func(context.Context, point.Call) (any, error) {
		return http.StatusOK, nil
	}, point.WithVariant(schema.VariantHTTPServer))

	req, _ := http.NewRequest(http.MethodGet, "http://shop.local/", nil)
	_, err := p.Call(s.ctx, req, map[string]string{"traceparent": "00-T1-S1-01"})
	s.Require().NoError(err)

	span := s.onlySpan()
	s.Equal("T1", span.Context().TraceID())
	s.Equal("S1", span.ParentID)
}

func (s *EngineSuite) TestHTTPClientInjectsIntoRequest() {
	sig := point.MustSignature(point.Arg("request"))
	var sent http.Header
	p := s.wrap("fetch", sig, func(_ context.Context, call point.Call) (any, error) {
		sent = call.Args[0].(*http.Request).Header.Clone()
		return http.StatusOK, nil
	}, point.WithVariant(schema.VariantHTTPClient), point.WithRemoteName("users-api"))

	req, _ := http.NewRequest(http.MethodGet, "http://users.local/users/1", nil)
	_, err := p.Call(s.ctx, req)
	s.Require().NoError(err)

	span := s.onlySpan()
	s.Equal("GET users-api", span.Name)
	s.Equal(observability.SpanKindClient, span.Kind)
	s.Equal("00-"+span.Context().TraceID()+"-"+span.Context().SpanID()+"-01", sent.Get("traceparent"))

	host, _ := span.Attribute("server.address")
	s.Equal("users.local", host)
}

func (s *EngineSuite) TestProducerInjectsIntoCopy() {
	sig := point.MustSignature(point.Arg("topic"), point.Opt("headers", nil))
	var sent map[string]string
	p := s.wrap("publish", sig, func(_ context.Context, call point.Call) (any, error) {
		sent = call.Args[1].(map[string]string)
		return nil, nil
	}, point.WithVariant(schema.VariantMessagingProducer))

	original := map[string]string{"tenant": "acme"}
	_, err := p.Call(s.ctx, "orders", original)
	s.Require().NoError(err)

	span := s.onlySpan()
	s.Equal("orders send", span.Name)
	s.Equal(observability.SpanKindProducer, span.Kind)
	s.Equal("acme", sent["tenant"])
	s.NotEmpty(sent["traceparent"])
	s.NotContains(original, "traceparent")
}

func (s *EngineSuite) TestProducerWithoutHeadersGetsFreshMap() {
	sig := point.MustSignature(point.Arg("topic"), point.Opt("headers", nil))
	var sent map[string]string
	p := s.wrap("publish", sig, func(_ context.Context, call point.Call) (any, error) {
		args, err := sig.Bind(call)
		if err != nil {
			return nil, err
		}
		sent, _ = args["headers"].(map[string]string)
		return nil, nil
	}, point.WithVariant(schema.VariantMessagingProducer))

	_, err := p.Call(s.ctx, "orders")
	s.Require().NoError(err)
	s.NotEmpty(sent["traceparent"])
}

func (s *EngineSuite) TestCustomRuleSet() {
	s.newEngine(schema.WithRuleSets(schema.RuleSet{
		Name:     "verbose",
		SpanName: "calc {arg.a}",
		Tags:     []schema.TagRule{{Arg: "label", Key: "calc.label", MaxLen: 4}},
		Result:   "calc.result",
		LogArgs:  true,
	}))

	sig := point.MustSignature(point.Arg("a"), point.Arg("label"))
	p := s.wrap("calc", sig, func(_ context.Context, call point.Call) (any, error) {
		return call.Args[0].(int) * 2, nil
	}, point.WithRuleSet("verbose"))

	_, err := p.Call(s.ctx, 21, "truncate-me")
	s.Require().NoError(err)

	span := s.onlySpan()
	s.Equal("calc 21", span.Name)

	label, _ := span.Attribute("calc.label")
	s.Equal("trun", label)
	result, _ := span.Attribute("calc.result")
	s.Equal(42, result)

	s.Require().Len(span.Events, 1)
	s.Equal("point.args", span.Events[0].Name)
	s.Contains(span.Events[0].Fields, observability.Int("point.arg.a", 21))
}

func (s *EngineSuite) TestSkipRuleSet() {
	s.newEngine(schema.WithRuleSets(schema.RuleSet{Name: "quiet", Skip: true}))

	p := s.wrap("noisy", point.MustSignature(), func(context.Context, point.Call) (any, error) {
		return "ok", nil
	}, point.WithRuleSet("quiet"))

	result, err := p.Call(s.ctx)
	s.NoError(err)
	s.Equal("ok", result)
	s.Empty(s.provider.FakeTracer().GetSpans())
}

func (s *EngineSuite) TestBrokenTagRuleIsOwnError() {
	s.newEngine(schema.WithRuleSets(schema.RuleSet{
		Name: "broken",
		Tags: []schema.TagRule{{Arg: "a", Path: "Nope", Key: "x"}},
	}))

	p := s.wrap("op", point.MustSignature(point.Arg("a")), func(_ context.Context, call point.Call) (any, error) {
		return call.Args[0], nil
	}, point.WithRuleSet("broken"))

	result, err := p.Call(s.ctx, 7)
	s.NoError(err)
	s.Equal(7, result)

	span := s.onlySpan()
	s.True(span.Ended())
	own, _ := span.Attribute("point.own_error")
	s.Equal(true, own)
}

func (s *EngineSuite) TestDisconnectedTracerRecordsNothing() {
	p := s.wrap("op", point.MustSignature(), func(context.Context, point.Call) (any, error) {
		return 1, nil
	})

	s.tracer.Disconnect()
	_, err := p.Call(s.ctx)
	s.NoError(err)
	s.Empty(s.provider.FakeTracer().GetSpans())

	s.Require().NoError(s.tracer.Connect(s.ctx, nil))
	_, err = p.Call(s.ctx)
	s.NoError(err)
	s.Len(s.provider.FakeTracer().GetSpans(), 1)
}

func TestNewEngine_RuleSetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ruleSetsYAML), 0o600))

	cfg := tracer.DefaultConfig("checkout")
	cfg.RuleSetsFile = path
	tr, err := tracer.New(cfg, fake.NewProvider())
	require.NoError(t, err)

	engine, err := schema.NewEngine(tr)
	require.NoError(t, err)

	rs, ok := engine.RuleSet("checkout")
	assert.True(t, ok)
	assert.True(t, rs.LogArgs)

	_, err = engine.Bind(schema.VariantGeneric, "quiet")
	assert.NoError(t, err)
}

func TestWithVariant(t *testing.T) {
	tr, err := tracer.New(tracer.DefaultConfig("checkout"), fake.NewProvider())
	require.NoError(t, err)

	engine, err := schema.NewEngine(tr, schema.WithVariant(schema.Variant{
		Name: "messaging.batch",
		Kind: observability.SpanKindConsumer,
		DefaultRuleSet: schema.RuleSet{
			SpanName: "{arg.topic} process",
			Headers:  "headers",
		},
	}))
	require.NoError(t, err)

	_, err = engine.Bind("messaging.batch", "")
	assert.NoError(t, err)

	_, err = schema.NewEngine(tr, schema.WithVariant(schema.Variant{}))
	assert.ErrorIs(t, err, schema.ErrInvalidRuleSet)
}
