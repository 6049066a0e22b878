package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(Params{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	client.scheme = "http"
	return client
}

func TestResolveInboxURLViaWebfinger(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/webfinger", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("resource"); got == "" {
			t.Fatalf("missing resource query parameter")
		}
		fmt.Fprintf(w, `{
			"subject": "acct:events@remote.test",
			"links": [
				{"rel": "http://webfinger.net/rel/profile-page", "href": "%s/profile"},
				{"rel": "self", "type": "application/activity+json", "href": "%s/actors/events"}
			]
		}`, server.URL, server.URL)
	})
	mux.HandleFunc("/actors/events", func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != activityContentType {
			t.Fatalf("unexpected Accept header %q", accept)
		}
		fmt.Fprintf(w, `{"id": "%s/actors/events", "inbox": "%s/actors/events/inbox"}`, server.URL, server.URL)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t)
	host := server.Listener.Addr().String()

	inbox := client.ResolveInboxURL(context.Background(), "events@"+host)
	if want := server.URL + "/actors/events/inbox"; inbox != want {
		t.Fatalf("expected inbox %q, got %q", want, inbox)
	}
}

func TestResolveInboxURLWithDirectURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "actor", "inbox": "https://remote.test/inbox"}`)
	}))
	defer server.Close()

	client := newTestClient(t)
	inbox := client.ResolveInboxURL(context.Background(), server.URL+"/actors/direct")
	if inbox != "https://remote.test/inbox" {
		t.Fatalf("expected declared inbox, got %q", inbox)
	}
}

func TestResolveInboxURLReturnsEmptyOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t)
	host := server.Listener.Addr().String()

	if inbox := client.ResolveInboxURL(context.Background(), "ghost@"+host); inbox != "" {
		t.Fatalf("expected empty inbox for failed webfinger, got %q", inbox)
	}
	if inbox := client.ResolveInboxURL(context.Background(), server.URL+"/missing"); inbox != "" {
		t.Fatalf("expected empty inbox for failed actor fetch, got %q", inbox)
	}
}

func TestFetchProfileURLFiltersSelfRel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"subject": "acct:events@remote.test",
			"links": [{"rel": "http://webfinger.net/rel/profile-page", "href": "https://remote.test/profile"}]
		}`)
	}))
	defer server.Close()

	client := newTestClient(t)
	host := server.Listener.Addr().String()

	if got := client.FetchProfileURL(context.Background(), "events@"+host); got != "" {
		t.Fatalf("expected empty profile URL when no self link, got %q", got)
	}
}

func TestFetchProfileURLRejectsBareNames(t *testing.T) {
	client := newTestClient(t)
	if got := client.FetchProfileURL(context.Background(), "no-domain"); got != "" {
		t.Fatalf("expected empty profile URL for bare name, got %q", got)
	}
	if got := client.FetchProfileURL(context.Background(), "@"); got != "" {
		t.Fatalf("expected empty profile URL for empty handle, got %q", got)
	}
}

type fakeCache struct {
	values map[string]string
	sets   int
}

func (f *fakeCache) GetInboxURL(_ context.Context, actorRef string) (string, bool, error) {
	val, ok := f.values[actorRef]
	return val, ok, nil
}

func (f *fakeCache) SetInboxURL(_ context.Context, actorRef, inboxURL string, _ time.Duration) error {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[actorRef] = inboxURL
	f.sets++
	return nil
}

func (f *fakeCache) InvalidateInboxURL(_ context.Context, actorRef string) error {
	delete(f.values, actorRef)
	return nil
}

func TestResolveInboxURLUsesCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"id": "actor", "inbox": "https://remote.test/inbox"}`)
	}))
	defer server.Close()

	cache := &fakeCache{}
	client := newTestClient(t)
	client.cache = cache

	uri := server.URL + "/actors/cached"
	if inbox := client.ResolveInboxURL(context.Background(), uri); inbox != "https://remote.test/inbox" {
		t.Fatalf("unexpected inbox %q", inbox)
	}
	if inbox := client.ResolveInboxURL(context.Background(), uri); inbox != "https://remote.test/inbox" {
		t.Fatalf("unexpected cached inbox %q", inbox)
	}
	if requests != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", requests)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}
}

func TestSplitHandle(t *testing.T) {
	cases := []struct {
		in     string
		name   string
		domain string
		ok     bool
	}{
		{"events@remote.test", "events", "remote.test", true},
		{"@events@remote.test", "events", "remote.test", true},
		{"events", "", "", false},
		{"@remote.test", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		name, domain, ok := splitHandle(tc.in)
		if name != tc.name || domain != tc.domain || ok != tc.ok {
			t.Fatalf("splitHandle(%q) = (%q, %q, %v)", tc.in, name, domain, ok)
		}
	}
}
