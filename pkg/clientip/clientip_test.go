package clientip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/churchly/backend/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "203.0.113.7:5100", want: "203.0.113.7"},
		{name: "cloudflare wins", headers: map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "192.0.2.9"}, remote: "10.0.0.1:80", want: "198.51.100.1"},
		{name: "first valid forwarded hop", headers: map[string]string{"X-Forwarded-For": "garbage, 192.0.2.9, 10.0.0.2"}, remote: "10.0.0.1:80", want: "192.0.2.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "192.0.2.44"}, remote: "10.0.0.1:80", want: "192.0.2.44"},
		{name: "mapped ipv4", remote: "[::ffff:192.0.2.1]:443", want: "192.0.2.1"},
		{name: "ipv6", headers: map[string]string{"X-Forwarded-For": "2001:db8::1"}, remote: "10.0.0.1:80", want: "2001:db8::1"},
		{name: "unparseable", remote: "not-an-ip", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(r))
		})
	}
}

func TestMiddlewareAndExtractor(t *testing.T) {
	t.Parallel()

	var got context.Context
	h := clientip.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Context()
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5100"
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "203.0.113.7", clientip.FromContext(got))

	attr, ok := clientip.LoggerExtractor()(got)
	assert.True(t, ok)
	assert.Equal(t, "client_ip", attr.Key)

	_, ok = clientip.LoggerExtractor()(context.Background())
	assert.False(t, ok)
}
