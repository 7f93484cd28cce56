package messaging

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderContentType = "content-type"
	contentTypeJSON   = "application/json"
)

// headerCarrier exposes a message's headers to otel propagators. Keys match
// case-insensitively so W3C and B3 propagators find what HTTP clients wrote.
type headerCarrier struct {
	headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if strings.EqualFold(h.Key, key) {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// stampHeaders marks msg as JSON and writes the trace context of ctx into it.
func stampHeaders(ctx context.Context, msg *kafka.Message) {
	carrier := headerCarrier{headers: &msg.Headers}
	carrier.Set(HeaderContentType, contentTypeJSON)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// traceContext returns ctx carrying the remote span context found in msg.
func traceContext(ctx context.Context, msg *kafka.Message) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &msg.Headers})
}
