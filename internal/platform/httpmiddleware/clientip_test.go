package httpmiddleware

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xrip       string
		want       string
	}{
		{
			name:       "direct connection without headers",
			remoteAddr: "203.0.113.7:4312",
			want:       "203.0.113.7",
		},
		{
			name:       "untrusted peer cannot spoof via xff",
			remoteAddr: "203.0.113.7:4312",
			xff:        "1.2.3.4",
			want:       "203.0.113.7",
		},
		{
			name:       "loopback proxy honors xff first hop",
			remoteAddr: "127.0.0.1:4312",
			xff:        "198.51.100.9, 10.0.0.1",
			want:       "198.51.100.9",
		},
		{
			name:       "private proxy honors x-real-ip when xff absent",
			remoteAddr: "10.0.0.5:4312",
			xrip:       "198.51.100.10",
			want:       "198.51.100.10",
		},
		{
			name:       "trusted proxy with garbage xff falls back to peer",
			remoteAddr: "192.168.1.2:4312",
			xff:        "not-an-ip",
			want:       "192.168.1.2",
		},
		{
			name:       "docker bridge range is trusted",
			remoteAddr: "172.17.0.3:4312",
			xff:        "198.51.100.11",
			want:       "198.51.100.11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xrip != "" {
				req.Header.Set("X-Real-IP", tt.xrip)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
