package downloads

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc_PrefersEdgeHeaderWhenSet(t *testing.T) {
	fn := DefaultKeyFunc("CF-Connecting-IP", false)

	r := httptest.NewRequest(http.MethodPost, "http://example/download", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("CF-Connecting-IP", " 203.0.113.7 ")

	if got := fn(r); got != "203.0.113.7" {
		t.Fatalf("expected edge header ip, got %q", got)
	}
}

func TestDefaultKeyFunc_TrustXForwardedForUsesFirstIP(t *testing.T) {
	fn := DefaultKeyFunc("", true)

	r := httptest.NewRequest(http.MethodPost, "http://example/download", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")

	if got := fn(r); got != "1.2.3.4" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}
}

func TestDefaultKeyFunc_FallbacksToRemoteAddrHost(t *testing.T) {
	fn := DefaultKeyFunc("", false)

	r := httptest.NewRequest(http.MethodPost, "http://example/download", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	if got := fn(r); got != "10.0.0.9" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

func TestDefaultKeyFunc_AnonymousPlaceholder(t *testing.T) {
	fn := DefaultKeyFunc("CF-Connecting-IP", true)

	r := httptest.NewRequest(http.MethodPost, "http://example/download", nil)
	r.RemoteAddr = ""

	// sem header, sem XFF, sem RemoteAddr: todo anônimo divide o mesmo slot
	if got := fn(r); got != AnonymousKey {
		t.Fatalf("expected %q, got %q", AnonymousKey, got)
	}
}
