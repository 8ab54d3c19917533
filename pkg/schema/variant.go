package schema

import "github.com/JailtonJunior94/pointkit/pkg/observability"

const (
	VariantGeneric           = "generic"
	VariantHTTPServer        = "http.server"
	VariantHTTPClient        = "http.client"
	VariantRPCServer         = "rpc.server"
	VariantDB                = "db"
	VariantMessagingProducer = "messaging.producer"
	VariantMessagingConsumer = "messaging.consumer"
)

// Variant is a family of points sharing a span kind and a default rule set.
type Variant struct {
	Name           string
	Kind           observability.SpanKind
	DefaultRuleSet RuleSet
}

// extracts reports whether the variant continues a trace from incoming headers.
func (v Variant) extracts() bool {
	return v.Kind == observability.SpanKindServer || v.Kind == observability.SpanKindConsumer
}

// injects reports whether the variant propagates the trace to a callee.
func (v Variant) injects() bool {
	return v.Kind == observability.SpanKindClient || v.Kind == observability.SpanKindProducer
}

func builtinVariants() map[string]Variant {
	variants := []Variant{
		{
			Name: VariantGeneric,
			Kind: observability.SpanKindInternal,
			DefaultRuleSet: RuleSet{
				Name:     VariantGeneric,
				SpanName: "{point}",
			},
		},
		{
			Name: VariantHTTPServer,
			Kind: observability.SpanKindServer,
			DefaultRuleSet: RuleSet{
				Name:     VariantHTTPServer,
				SpanName: "{arg.request.Method} {remote}",
				Tags: []TagRule{
					{Arg: "request", Path: "Method", Key: "http.request.method"},
					{Arg: "request", Path: "URL.Path", Key: "url.path", MaxLen: 256},
					{Arg: "request", Path: "Host", Key: "server.address"},
					{Arg: "request_id", Key: "http.request_id"},
				},
				Headers: "headers",
				Result:  "http.response.status_code",
			},
		},
		{
			Name: VariantHTTPClient,
			Kind: observability.SpanKindClient,
			DefaultRuleSet: RuleSet{
				Name:     VariantHTTPClient,
				SpanName: "{arg.request.Method} {remote}",
				Tags: []TagRule{
					{Arg: "request", Path: "Method", Key: "http.request.method"},
					{Arg: "request", Path: "URL.Hostname", Key: "server.address"},
					{Arg: "request", Path: "URL.Path", Key: "url.path", MaxLen: 256},
				},
				Headers: "request.Header",
				Result:  "http.response.status_code",
			},
		},
		{
			Name: VariantRPCServer,
			Kind: observability.SpanKindServer,
			DefaultRuleSet: RuleSet{
				Name:     VariantRPCServer,
				SpanName: "{arg.method}",
				Tags: []TagRule{
					{Arg: "method", Key: "rpc.method"},
				},
				Headers: "metadata",
				Result:  "rpc.grpc.status_code",
			},
		},
		{
			Name: VariantDB,
			Kind: observability.SpanKindClient,
			DefaultRuleSet: RuleSet{
				Name:     VariantDB,
				SpanName: "{remote}",
				Tags: []TagRule{
					{Arg: "query", Key: "db.query.text", MaxLen: 512},
				},
			},
		},
		{
			Name: VariantMessagingProducer,
			Kind: observability.SpanKindProducer,
			DefaultRuleSet: RuleSet{
				Name:     VariantMessagingProducer,
				SpanName: "{arg.topic} send",
				Tags: []TagRule{
					{Arg: "topic", Key: "messaging.destination.name"},
				},
				Headers: "headers",
			},
		},
		{
			Name: VariantMessagingConsumer,
			Kind: observability.SpanKindConsumer,
			DefaultRuleSet: RuleSet{
				Name:     VariantMessagingConsumer,
				SpanName: "{arg.topic} process",
				Tags: []TagRule{
					{Arg: "topic", Key: "messaging.destination.name"},
				},
				Headers: "headers",
			},
		},
	}

	out := make(map[string]Variant, len(variants))
	for _, v := range variants {
		out[v.Name] = v
	}
	return out
}
