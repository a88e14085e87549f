package metadata

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartgate/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		trusted []netip.Prefix
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded header ignored without trusted proxies", nil, map[string]string{"X-Forwarded-For": "203.0.113.7"}, "198.51.100.9:1234", "198.51.100.9"},
		{"forwarded header ignored from untrusted peer", proxies, map[string]string{"X-Forwarded-For": "203.0.113.7"}, "198.51.100.9:1234", "198.51.100.9"},
		{"real ip ignored from untrusted peer", proxies, map[string]string{"X-Real-IP": "203.0.113.7"}, "198.51.100.9:1234", "198.51.100.9"},
		{"trusted peer forwards client", proxies, map[string]string{"X-Forwarded-For": "203.0.113.7"}, "10.0.0.2:1234", "203.0.113.7"},
		{"spoofed left hops are skipped", proxies, map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.7, 10.0.0.5"}, "10.0.0.2:1234", "203.0.113.7"},
		{"all hops trusted yields leftmost", proxies, map[string]string{"X-Forwarded-For": "10.0.0.9, 10.0.0.5"}, "10.0.0.2:1234", "10.0.0.9"},
		{"garbage hop stops the walk", proxies, map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.2:1234", "10.0.0.2"},
		{"trusted peer real ip", proxies, map[string]string{"X-Real-IP": " 198.51.100.4 "}, "192.0.2.1:1234", "198.51.100.4"},
		{"remote addr ipv6", nil, nil, "[::1]:8080", "::1"},
		{"empty remote", nil, nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req, tt.trusted))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{"10.1.2.3/8", "::1"})
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "::1/128", prefixes[1].String())

	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}

func TestClientMetadataPopulatesContext(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:40000"
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.1", ip)
	assert.Equal(t, "curl/8.0", ua)
}
