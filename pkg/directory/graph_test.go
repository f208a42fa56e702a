package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// newTestClient points a GraphClient at a test server with retries disabled
// so failure-path tests don't wait on backoff.
func newTestClient(t *testing.T, handler http.Handler) *GraphClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil

	return NewGraphClient(StaticTokenSource("test-token"),
		WithBaseURL(srv.URL),
		WithHTTPClient(rc),
	)
}

func TestListAllSendsEventualConsistencyHeaders(t *testing.T) {
	var gotConsistency, gotCount, gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotConsistency = r.Header.Get("ConsistencyLevel")
		gotCount = r.URL.Query().Get("$count")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"value":[{"id":"1","appId":"a","displayName":"One"}]}`))
	}))

	apps, err := c.ListAll(context.Background(), ListOptions{Eventual: true})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if gotConsistency != "eventual" {
		t.Errorf("ConsistencyLevel = %q, want eventual", gotConsistency)
	}
	if gotCount != "true" {
		t.Errorf("$count = %q, want true", gotCount)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(apps) != 1 || apps[0].DisplayName != "One" {
		t.Errorf("unexpected listing: %+v", apps)
	}
}

func TestListAllOmitsEventualHeadersOnConsistentPath(t *testing.T) {
	var gotConsistency string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotConsistency = r.Header.Get("ConsistencyLevel")
		if q := r.URL.Query().Get("$orderby"); q != "" {
			t.Errorf("unexpected $orderby=%q on consistent path", q)
		}
		w.Write([]byte(`{"value":[]}`))
	}))

	if _, err := c.ListAll(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if gotConsistency != "" {
		t.Errorf("ConsistencyLevel = %q, want empty", gotConsistency)
	}
}

func TestListAllFollowsNextLink(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/applications", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":"1","displayName":"A"}],"@odata.nextLink":"` + srv.URL + `/page2"}`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":"2","displayName":"B"}]}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	c := NewGraphClient(StaticTokenSource("t"), WithBaseURL(srv.URL), WithHTTPClient(rc))

	apps, err := c.ListAll(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 apps across pages, got %d", len(apps))
	}
}

func TestListAllHonorsTop(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("$top"); got != "2" {
			t.Errorf("$top = %q, want 2", got)
		}
		w.Write([]byte(`{"value":[{"id":"1"},{"id":"2"},{"id":"3"}]}`))
	}))

	apps, err := c.ListAll(context.Background(), ListOptions{Top: 2})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("expected client-side cap at 2, got %d", len(apps))
	}
}

func TestCountAll(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/applications/$count" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("ConsistencyLevel") != "eventual" {
			t.Error("count must use the eventually consistent path")
		}
		w.Write([]byte("412"))
	}))

	n, err := c.CountAll(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	if n != 412 {
		t.Errorf("count = %d, want 412", n)
	}
}

func TestFailureMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Code
	}{
		{"not found status", 404, `{}`, CodeNotFound},
		{"not found odata code", 400, `{"error":{"code":"Request_ResourceNotFound","message":"gone"}}`, CodeNotFound},
		{"unauthorized", 401, `{"error":{"code":"InvalidAuthenticationToken","message":"expired"}}`, CodeAuthenticationRequired},
		{"throttled", 429, `{}`, CodeThrottled},
		{"audience conflict", 400, `{"error":{"code":"Request_BadRequest","message":"Value of property signInAudience is invalid"}}`, CodeConflict},
		{"generic", 500, `{"error":{"code":"InternalServerError","message":"boom"}}`, CodeGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			_, err := c.GetPartial(context.Background(), "obj", []string{"id"}, false)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := CodeOf(err); got != tc.want {
				t.Errorf("code = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGetPartialSelectAndExpand(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("$select"); got != "id,web" {
			t.Errorf("$select = %q", got)
		}
		if got := q.Get("$expand"); got == "" {
			t.Error("expected $expand=owners(...)")
		}
		w.Write([]byte(`{"id":"obj","web":{"redirectUris":["https://a/cb"]},"owners":[{"id":"u1","userPrincipalName":"x@y"}]}`))
	}))

	app, err := c.GetPartial(context.Background(), "obj", []string{"id", FieldWeb}, true)
	if err != nil {
		t.Fatalf("GetPartial: %v", err)
	}
	if app.Web == nil || len(app.Web.RedirectURIs) != 1 {
		t.Errorf("web section not decoded: %+v", app.Web)
	}
	if len(app.Owners) != 1 || app.Owners[0].Label() != "x@y" {
		t.Errorf("owners not decoded: %+v", app.Owners)
	}
}

func TestCredentialUnavailableBeforeWire(t *testing.T) {
	hit := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	c.tokens = StaticTokenSource("")

	_, err := c.ListAll(context.Background(), ListOptions{})
	if !IsCredentialUnavailable(err) {
		t.Fatalf("expected credential-unavailable, got %v", err)
	}
	if hit {
		t.Error("request must not reach the wire without a token")
	}
}

func TestRemoveKeyPatchesRemainingSet(t *testing.T) {
	var patched string
	mux := http.NewServeMux()
	mux.HandleFunc("/applications/obj", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id":"obj","keyCredentials":[` +
				`{"keyId":"k1","endDateTime":"2030-01-01T00:00:00Z","startDateTime":"2020-01-01T00:00:00Z"},` +
				`{"keyId":"k2","endDateTime":"2030-01-01T00:00:00Z","startDateTime":"2020-01-01T00:00:00Z"}]}`))
		case http.MethodPatch:
			b := make([]byte, 4096)
			n, _ := r.Body.Read(b)
			patched = string(b[:n])
			w.WriteHeader(http.StatusNoContent)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	c := NewGraphClient(StaticTokenSource("t"), WithBaseURL(srv.URL), WithHTTPClient(rc))

	if err := c.RemoveKey(context.Background(), "obj", "k1"); err != nil {
		t.Fatalf("RemoveKey: %v", err)
	}
	if patched == "" {
		t.Fatal("expected a PATCH with the remaining credentials")
	}
	if !strings.Contains(patched, `"k2"`) || strings.Contains(patched, `"k1"`) {
		t.Errorf("patch body kept the wrong keys: %s", patched)
	}
}

func TestRemoveKeyMissingKeyIsNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"obj","keyCredentials":[]}`))
	}))
	err := c.RemoveKey(context.Background(), "obj", "nope")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestAddPasswordDecodesSecret(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"keyId":"new","secretText":"s3cret","endDateTime":"2030-01-01T00:00:00Z","startDateTime":"2024-01-01T00:00:00Z"}`))
	}))
	cred, err := c.AddPassword(context.Background(), "obj", "ci", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("AddPassword: %v", err)
	}
	if cred.SecretText != "s3cret" || cred.KeyID != "new" {
		t.Errorf("unexpected credential: %+v", cred)
	}
}
