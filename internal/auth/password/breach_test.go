package password

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha1Parts(plain string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(plain))
	digest := strings.ToUpper(fmt.Sprintf("%x", sum))
	return digest[:5], digest[5:]
}

func TestBreachChecker_IsCompromised(t *testing.T) {
	const pwned = "password123"
	prefix, suffix := sha1Parts(pwned)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		// Range responses list hash suffixes with occurrence counts.
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
		fmt.Fprintf(w, "%s:42\r\n", suffix)
		fmt.Fprintf(w, "011053FD0102E94D6AE2F8B83D76FAF94F6:1\r\n")
	}))
	defer srv.Close()

	checker := NewBreachCheckerWithURL(srv.URL, srv.Client())

	assert.True(t, checker.IsCompromised(context.Background(), pwned))
	assert.Equal(t, "/"+prefix, gotPath)

	assert.False(t, checker.IsCompromised(context.Background(), "anUnbreached$ecret-98765"))
}

func TestBreachChecker_SuffixMatchIsCaseInsensitive(t *testing.T) {
	const pwned = "password123"
	_, suffix := sha1Parts(pwned)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:42\r\n", strings.ToLower(suffix))
	}))
	defer srv.Close()

	checker := NewBreachCheckerWithURL(srv.URL, srv.Client())
	assert.True(t, checker.IsCompromised(context.Background(), pwned))
}

func TestBreachChecker_FailsOpen(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		checker := NewBreachCheckerWithURL(srv.URL, srv.Client())
		assert.False(t, checker.IsCompromised(context.Background(), "password123"))
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // shut it down before the request

		checker := NewBreachCheckerWithURL(srv.URL, nil)
		assert.False(t, checker.IsCompromised(context.Background(), "password123"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "ABCDEF:1\r\n")
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		checker := NewBreachCheckerWithURL(srv.URL, srv.Client())
		assert.False(t, checker.IsCompromised(ctx, "password123"))
	})
}

func TestNewBreachCheckerWithURL_NormalizesBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	// No trailing slash on purpose.
	checker := NewBreachCheckerWithURL(srv.URL, srv.Client())
	require.False(t, checker.IsCompromised(context.Background(), "whatever"))

	prefix, _ := sha1Parts("whatever")
	assert.Equal(t, "/"+prefix, gotPath)
}
