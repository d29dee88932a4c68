package security

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewSafeClient_Timeout(t *testing.T) {
	guard := NewOutboundGuard()
	client := guard.NewSafeClient(5*time.Second, 1024)
	if client.Timeout != 5*time.Second {
		t.Errorf("expected timeout %v, got %v", 5*time.Second, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport to be set")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、接続はブロックされる。
func TestNewSafeClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewOutboundGuard().NewSafeClient(5*time.Second, 1024)
	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestLimitedTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chunked") == "1" {
			// Content-Lengthを付けずに送る
			w.(http.Flusher).Flush()
		}
		io.WriteString(w, strings.Repeat("a", 64))
	}))
	defer ts.Close()

	tests := []struct {
		name    string
		limit   int64
		query   string
		wantErr bool
	}{
		{name: "上限以内", limit: 64, wantErr: false},
		{name: "Content-Lengthが上限超過", limit: 10, wantErr: true},
		{name: "チャンク転送で上限超過", limit: 10, query: "?chunked=1", wantErr: true},
		{name: "チャンク転送で上限以内", limit: 100, query: "?chunked=1", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &http.Client{Transport: &limitedTransport{base: http.DefaultTransport, limit: tt.limit}}
			resp, err := client.Get(ts.URL + tt.query)
			if err == nil {
				defer resp.Body.Close()
				_, err = io.ReadAll(resp.Body)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrResponseTooLarge) {
					t.Errorf("expected ErrResponseTooLarge, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	guard := NewOutboundGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "公開HTTPS", url: "https://world.openfoodfacts.org", wantErr: false},
		{name: "公開HTTP", url: "http://catalog.example.com/api", wantErr: false},
		{name: "空文字列", url: "", wantErr: true},
		{name: "スキームなし", url: "not-a-url", wantErr: true},
		{name: "ftp", url: "ftp://example.com/file", wantErr: true},
		{name: "file", url: "file:///etc/passwd", wantErr: true},
		{name: "プライベートIP 10/8", url: "http://10.0.0.1/", wantErr: true},
		{name: "プライベートIP 172.16/12", url: "http://172.31.255.255/", wantErr: true},
		{name: "プライベートIP 192.168/16", url: "http://192.168.1.100/", wantErr: true},
		{name: "ループバック", url: "http://127.0.0.2/", wantErr: true},
		{name: "localhost", url: "http://LOCALHOST:8080/", wantErr: true},
		{name: "メタデータIP", url: "http://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "GCPメタデータホスト", url: "http://metadata.google.internal/", wantErr: true},
		{name: "CGNAT", url: "http://100.64.0.1/", wantErr: true},
		{name: "IPv6ループバック", url: "http://[::1]/", wantErr: true},
		{name: "IPv6ユニークローカル", url: "http://[fd00::1]/", wantErr: true},
		{name: "ゼロアドレス", url: "http://0.0.0.0/", wantErr: true},
		{name: "公開IP", url: "http://93.184.216.34/", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestOutboundGuardInterface(t *testing.T) {
	var _ OutboundGuard = NewOutboundGuard()
}
