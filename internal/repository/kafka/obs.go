package kafka

import "github.com/segmentio/kafka-go"

// headerCarrier is a TextMapCarrier the propagator injects into before a
// message is published.
type headerCarrier map[string]string

func (c headerCarrier) Get(key string) string { return c[key] }
func (c headerCarrier) Set(key, val string)   { c[key] = val }

func (c headerCarrier) Keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}

func (c headerCarrier) ToKafka() []kafka.Header {
	out := make([]kafka.Header, 0, len(c))
	for k, v := range c {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// headerReader adapts consumed message headers for context extraction.
// Writes are ignored.
type headerReader []kafka.Header

func (r headerReader) Get(key string) string {
	for i := range r {
		if r[i].Key == key {
			return string(r[i].Value)
		}
	}
	return ""
}

func (r headerReader) Set(string, string) {}

func (r headerReader) Keys() []string {
	out := make([]string, 0, len(r))
	for i := range r {
		out = append(out, r[i].Key)
	}
	return out
}
