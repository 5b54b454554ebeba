package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc_PerSchemeSelection(t *testing.T) {
	fn := NewProxyFunc("http://proxy-a:3128", "http://proxy-b:3128")

	httpReq, _ := http.NewRequest(http.MethodGet, "http://api.example.com/v1", nil)
	u, err := fn(httpReq)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if u == nil || u.Host != "proxy-a:3128" {
		t.Errorf("expected http traffic through proxy-a, got %v", u)
	}

	httpsReq, _ := http.NewRequest(http.MethodGet, "https://api.example.com/v1", nil)
	u, err = fn(httpsReq)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if u == nil || u.Host != "proxy-b:3128" {
		t.Errorf("expected https traffic through proxy-b, got %v", u)
	}
}

func TestNewProxyFunc_HTTPProxyCoversHTTPS(t *testing.T) {
	fn := NewProxyFunc("http://proxy-a:3128", "")

	httpsReq, _ := http.NewRequest(http.MethodGet, "https://search.example.com", nil)
	u, err := fn(httpsReq)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if u == nil || u.Host != "proxy-a:3128" {
		t.Errorf("expected fallback to the http proxy, got %v", u)
	}
}
