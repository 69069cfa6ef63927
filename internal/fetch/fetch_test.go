package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient reaches httptest servers on loopback.
func testClient() *Client {
	return NewClient(Options{AllowPrivateNetworks: true})
}

func TestClientGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	page, err := testClient().Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, page.URL)
	assert.Contains(t, page.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, PlatformUnknown, page.Platform)
}

func TestClientGet_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not-a-url", "ftp://example.com/file", "file:///etc/passwd"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NewClient(Options{}).Get(context.Background(), raw)
			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Contains(t, err.Error(), "invalid URL")
		})
	}
}

func TestClientGet_BlocksPrivateDestinations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>internal-secret-token</body></html>"))
	}))
	defer server.Close()

	text, err := NewClient(Options{}).Text(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrBlockedAddress)
	assert.Empty(t, text)

	// redirects are checked on every hop
	redirect := httptest.NewServer(http.RedirectHandler(server.URL, http.StatusFound))
	defer redirect.Close()
	_, err = NewClient(Options{}).Get(context.Background(), redirect.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		addr   string
		public bool
	}{
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"::", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"::ffff:127.0.0.1", false},
		{"224.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.public, IsPublicAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestClientGet_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	page, err := testClient().Get(context.Background(), server.URL)
	require.Error(t, err)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestClientGet_LimitsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer server.Close()

	page, err := NewClient(Options{MaxBytes: 10, AllowPrivateNetworks: true}).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, page.HTML, 10)
}

func TestClientText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<nav>Jobs Home</nav>
			<div class="job-description"><h2>Backend Engineer</h2><p>Go and PostgreSQL.</p></div>
			<form>Apply now</form>
			<footer>Copyright</footer>
		</body></html>`))
	}))
	defer server.Close()

	text, err := testClient().Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer\nGo and PostgreSQL.", text)
}

func TestClientText_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><script>var x = 1;</script></body></html>`))
	}))
	defer server.Close()

	_, err := testClient().Text(context.Background(), server.URL)
	assert.True(t, errors.Is(err, ErrEmptyPage))
}

func TestExtractMainText(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<main>
				<h1>Main Content</h1>
				<p>This is   the important text.</p>
			</main>
			<footer>Footer</footer>
		</body>
	</html>`

	text, err := ExtractMainText(html, []string{"article", "main"})
	require.NoError(t, err)
	assert.Equal(t, "Main Content\nThis is the important text.", text)
}

func TestExtractMainText_FallsBackToBody(t *testing.T) {
	text, err := ExtractMainText(`<html><body><p>Only body</p><div class="promo">Buy</div></body></html>`, []string{"main"}, ".promo")
	require.NoError(t, err)
	assert.Equal(t, "Only body", text)
}
