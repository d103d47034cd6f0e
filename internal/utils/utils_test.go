package utils_test

import (
	"errors"
	"testing"

	"github.com/raysh454/courtfetch/internal/utils"
)

// ─── Absolutize ────────────────────────────────────────────────────────

func TestAbsolutize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name, base, href, want string
	}{
		{"root relative", "https://court.example", "/orders/x.pdf", "https://court.example/orders/x.pdf"},
		{"path relative no base path", "https://court.example", "orders/x.pdf", "https://court.example/orders/x.pdf"},
		{"path relative with base dir", "https://court.example/app/", "x.pdf", "https://court.example/app/x.pdf"},
		{"path relative with base path no slash", "https://court.example/app", "orders/x.pdf", "https://court.example/app/orders/x.pdf"},
		{"root relative ignores base path", "https://court.example/app", "/orders/x.pdf", "https://court.example/orders/x.pdf"},
		{"parent dir", "https://court.example/app/case/", "../orders/x.pdf", "https://court.example/app/orders/x.pdf"},
		{"protocol relative", "https://court.example", "//cdn.example/x.pdf", "https://cdn.example/x.pdf"},
		{"absolute kept", "https://court.example", "http://other.example/y.pdf", "http://other.example/y.pdf"},
		{"query preserved", "https://court.example", "/show?id=9&f=a.pdf", "https://court.example/show?id=9&f=a.pdf"},
		{"base default port dropped", "https://Court.Example:443", "/x.pdf", "https://court.example/x.pdf"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := utils.Absolutize(tc.base, tc.href)
			if err != nil {
				t.Fatalf("Absolutize(%q, %q): %v", tc.base, tc.href, err)
			}
			if got != tc.want {
				t.Errorf("Absolutize(%q, %q) = %q, want %q", tc.base, tc.href, got, tc.want)
			}
		})
	}
}

func TestAbsolutize_EmptyBaseFailsForRelative(t *testing.T) {
	t.Parallel()
	if _, err := utils.Absolutize("", "/x.pdf"); err == nil {
		t.Fatal("expected error resolving relative link without base")
	}
	got, err := utils.Absolutize("", "https://court.example/x.pdf")
	if err != nil || got != "https://court.example/x.pdf" {
		t.Fatalf("absolute link should not need a base, got %q, %v", got, err)
	}
}

func TestResolve_EmptyRef(t *testing.T) {
	t.Parallel()
	u, err := utils.NewURLTools("https://court.example")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := u.Resolve("  "); !errors.Is(err, utils.ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
}

// ─── Host comparison ───────────────────────────────────────────────────

func TestDomainIsSameString(t *testing.T) {
	t.Parallel()
	u, err := utils.NewURLTools("https://Court.Example/case-status")
	if err != nil {
		t.Fatal(err)
	}
	same, err := u.DomainIsSameString("http://court.example:8080/orders/1.pdf")
	if err != nil || !same {
		t.Errorf("expected same host, got %v, %v", same, err)
	}
	same, err = u.DomainIsSameString("https://evil.example/court.example")
	if err != nil || same {
		t.Errorf("expected different host, got %v, %v", same, err)
	}
}

func TestDomainIsSame_IDN(t *testing.T) {
	t.Parallel()
	a, _ := utils.NewURLTools("https://bücher.example/")
	b, _ := utils.NewURLTools("https://xn--bcher-kva.example/x.pdf")
	if !a.DomainIsSame(b) {
		t.Errorf("expected IDN and punycode hosts to match: %q vs %q", a.Hostname(), b.Hostname())
	}
}

// ─── HasExtension ──────────────────────────────────────────────────────

func TestHasExtension(t *testing.T) {
	t.Parallel()
	exts := []string{".pdf"}
	cases := map[string]bool{
		"/orders/x.pdf":               true,
		"/orders/X.PDF":               true,
		"https://c.example/a.pdf?v=1": true,
		"/orders/x.pdf#page=2":        true,
		"/show?file=x.pdf":            false,
		"/orders/x.pdfx":              false,
		"/orders/":                    false,
		"javascript:void(0)":          false,
	}
	for in, want := range cases {
		if got := utils.HasExtension(in, exts); got != want {
			t.Errorf("HasExtension(%q) = %v, want %v", in, got, want)
		}
	}
}
