package guard

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/nolia/nolia/internal/apperr"
)

type fakeResolver struct {
	addrs map[string][]string
}

func (f *fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := f.addrs[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	var out []net.IPAddr
	for _, ip := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return out, nil
}

func assertInvalidURL(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindInvalidURL {
		t.Errorf("expected InvalidURL, got %v", err)
	}
}

func TestValidate_RejectsNonHTTP(t *testing.T) {
	g := New()
	for _, raw := range []string{"ftp://example.com/x", "file:///etc/passwd", "gopher://x"} {
		_, err := g.Validate(context.Background(), raw)
		assertInvalidURL(t, err)
	}
}

func TestValidate_RejectsLocalhost(t *testing.T) {
	g := New()
	for _, raw := range []string{"http://localhost/admin", "http://service.local/x", "http://LOCALHOST:8080/"} {
		_, err := g.Validate(context.Background(), raw)
		assertInvalidURL(t, err)
	}
}

func TestValidate_RejectsPrivateLiterals(t *testing.T) {
	g := New()
	literals := []string{
		"http://10.0.0.5/x",
		"http://127.0.0.1/x",
		"http://169.254.1.1/x",
		"http://192.168.1.1/x",
		"http://172.16.0.1/x",
		"http://[::1]/x",
		"http://[fc00::1]/x",
		"http://[fe80::1]/x",
	}
	for _, raw := range literals {
		_, err := g.Validate(context.Background(), raw)
		assertInvalidURL(t, err)
	}
}

func TestValidate_RejectsPrivateResolution(t *testing.T) {
	g := NewWithResolver(&fakeResolver{addrs: map[string][]string{
		"rebind.example": {"93.184.216.34", "10.0.0.5"},
	}})
	_, err := g.Validate(context.Background(), "https://rebind.example/page")
	assertInvalidURL(t, err)
}

func TestValidate_AllowsPublicHost(t *testing.T) {
	g := NewWithResolver(&fakeResolver{addrs: map[string][]string{
		"example.com": {"93.184.216.34"},
	}})
	u, err := g.Validate(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if u.Host != "example.com" {
		t.Errorf("unexpected parsed host %q", u.Host)
	}
}

func TestValidate_RejectsUnresolvableHost(t *testing.T) {
	g := NewWithResolver(&fakeResolver{addrs: map[string][]string{}})
	_, err := g.Validate(context.Background(), "https://nope.example/")
	assertInvalidURL(t, err)
}
