package static

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newRoot(t *testing.T) string {
	t.Helper()
	srv, err := NewServer(t.TempDir())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Root()
}

func TestResolveConfinedPaths(t *testing.T) {
	root := newRoot(t)

	cases := []struct {
		raw  string
		want string
	}{
		{"", filepath.Join(root, "index.html")},
		{"/", filepath.Join(root, "index.html")},
		{"/?v=2", filepath.Join(root, "index.html")},
		{"/css/site.css", filepath.Join(root, "css", "site.css")},
		{"/js//app.js", filepath.Join(root, "js", "app.js")},
		{"/img/./logo.png?cache=1", filepath.Join(root, "img", "logo.png")},
		{"/a/../b.html", filepath.Join(root, "b.html")},
		{"/pan%20dulce.html", filepath.Join(root, "pan dulce.html")},
		{"/..foo", filepath.Join(root, "..foo")},
	}
	for _, tc := range cases {
		got, err := Resolve(root, tc.raw)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.raw, got, tc.want)
		}
		if !within(root, got) {
			t.Fatalf("Resolve(%q) = %q escapes %q", tc.raw, got, root)
		}
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	root := newRoot(t)

	for _, raw := range []string{
		"/..",
		"/../../etc/passwd",
		"../secret",
		"/%2e%2e/%2e%2e/etc/passwd",
		"/css/../../outside.txt",
		"/a/b/../../../c",
	} {
		_, err := Resolve(root, raw)
		if !errors.Is(err, ErrOutsideRoot) {
			t.Fatalf("Resolve(%q) error = %v, want ErrOutsideRoot", raw, err)
		}
	}
}

func TestResolveMalformedInput(t *testing.T) {
	root := newRoot(t)

	for _, raw := range []string{"/%zz", "/bad%", "/nul%00.html"} {
		_, err := Resolve(root, raw)
		if !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("Resolve(%q) error = %v, want ErrMalformedInput", raw, err)
		}
	}
}

func TestResolveRejectsSymlinkOutOfRoot(t *testing.T) {
	root := newRoot(t)
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := Resolve(root, "/link.txt")
	if !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("error = %v, want ErrOutsideRoot", err)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"data.json":     "application/json",
		"INDEX.HTML":    "text/html",
		"app.js":        "text/javascript",
		"style.css":     "text/css",
		"logo.png":      "image/png",
		"file.xyz":      "application/octet-stream",
		"Makefile":      "application/octet-stream",
		"dir.v2/readme": "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
