package listing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const pageJSON = `{"kind":"Listing","data":{"after":"t3_abc","before":null,"children":[
 {"kind":"t3","data":{"id":"abc","name":"t3_abc","title":"A cat","author":"alice","subreddit":"aww",
  "permalink":"/r/aww/comments/abc/a_cat/","url":"https://i.redd.it/x.jpg","domain":"i.redd.it",
  "created_utc":1700000000.0,"post_hint":"image","stickied":true,"extra_field":{"kept":true}}},
 {"kind":"t3","data":{"id":"def","name":"t3_def","title":"A dog","author":"bob","subreddit":"aww",
  "permalink":"/r/aww/comments/def/a_dog/","url":"https://example.com/dog","domain":"example.com",
  "created_utc":1700000100.0}}
]}}`

const threadJSON = `[
 {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"abc","name":"t3_abc","title":"A cat","subreddit":"aww"}}]}},
 {"kind":"Listing","data":{"children":[
   {"kind":"t1","data":{"id":"c1","author":"carol","body":"cute","score":10,"created_utc":1700000200,
     "replies":{"kind":"Listing","data":{"children":[
       {"kind":"t1","data":{"id":"c2","author":"dave","body":"agreed","score":3,"replies":""}},
       {"kind":"more","data":{"count":4}}
     ]}}}},
   {"kind":"t1","data":{"id":"c3","author":"erin","body":"meh","score":-1,"replies":""}},
   {"kind":"more","data":{"count":7}}
 ]}}
]`

func newTestClient(url string) *Client {
	return NewClient(Options{BaseURL: url})
}

func TestClientListing(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/r/aww/hot/.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pageJSON))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	page, err := c.Listing(context.Background(), FirstPageURL(server.URL, Query{Community: "aww", Sort: SortHot}))
	if err != nil {
		t.Fatalf("Listing failed: %v", err)
	}

	if gotAgent != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotAgent, DefaultUserAgent)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.After != "t3_abc" || page.Before != "" {
		t.Errorf("cursor = %+v", page.Cursor())
	}
	first := page.Items[0]
	if first.Title != "A cat" || first.Author != "alice" || !first.Stickied {
		t.Errorf("unexpected first item: %+v", first)
	}
	if first.Created().Unix() != 1700000000 {
		t.Errorf("created = %v", first.Created())
	}

	// Unknown upstream fields survive in Raw.
	if !jsonContains(first.Raw, "extra_field") {
		t.Errorf("raw record lost fields: %s", first.Raw)
	}
}

func TestClientNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"reason":"banned","message":"Not Found","error":404}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Listing(context.Background(), server.URL+"/r/nope/hot/.json")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound = false for %v", err)
	}
	if Retryable(err) {
		t.Error("404 must not be retryable")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	body, ok := fe.Body.(map[string]any)
	if !ok {
		t.Fatalf("expected parsed JSON body, got %T", fe.Body)
	}
	if body["reason"] != "banned" {
		t.Errorf("body reason = %v", body["reason"])
	}
}

func TestClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream sad", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Listing(context.Background(), server.URL+"/hot/.json")
	if StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("status = %d, err = %v", StatusOf(err), err)
	}
	if !Retryable(err) {
		t.Error("5xx should be retryable")
	}
	var fe *FetchError
	errors.As(err, &fe)
	if s, ok := fe.Body.(string); !ok || s == "" {
		t.Errorf("expected text body, got %#v", fe.Body)
	}
}

func TestClientInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Listing(context.Background(), server.URL+"/hot/.json")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Listing(context.Background(), url+"/hot/.json")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if !Retryable(err) {
		t.Error("network errors should be retryable")
	}
}

func TestClientCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient("http://127.0.0.1:1").Listing(ctx, "http://127.0.0.1:1/hot/.json")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if Retryable(err) {
		t.Error("cancellation must not be retryable")
	}
}

func TestClientThread(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/aww/comments/abc.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(threadJSON))
	}))
	defer server.Close()

	th, err := newTestClient(server.URL).Thread(context.Background(), "aww", "abc")
	if err != nil {
		t.Fatalf("Thread failed: %v", err)
	}
	if th.Post.ID != "abc" {
		t.Errorf("post id = %q", th.Post.ID)
	}
	if len(th.Comments) != 2 {
		t.Fatalf("expected 2 top-level comments, got %d", len(th.Comments))
	}
	if th.More != 7 {
		t.Errorf("top-level more = %d, want 7", th.More)
	}
	c1 := th.Comments[0]
	if len(c1.Replies) != 1 || c1.Replies[0].Author != "dave" || c1.Replies[0].Depth != 1 {
		t.Errorf("unexpected replies: %+v", c1.Replies)
	}
	if c1.More != 4 {
		t.Errorf("nested more = %d, want 4", c1.More)
	}

	flat := Flatten(th.Comments)
	order := []string{"c1", "c2", "c3"}
	if len(flat) != len(order) {
		t.Fatalf("flatten len = %d", len(flat))
	}
	for i, id := range order {
		if flat[i].ID != id {
			t.Errorf("flat[%d] = %s, want %s", i, flat[i].ID, id)
		}
	}
}

func TestDecodeThreadRejectsWrongShape(t *testing.T) {
	if _, err := DecodeThread([]byte(`{"kind":"Listing"}`)); err == nil {
		t.Error("expected error for object body")
	}
	if _, err := DecodeThread([]byte(`[{"kind":"Listing","data":{"children":[]}}]`)); err == nil {
		t.Error("expected error for single element array")
	}
}

func jsonContains(raw []byte, s string) bool {
	return strings.Contains(string(raw), s)
}
