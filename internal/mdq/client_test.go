package mdq_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mdqsync/internal/fingerprint"
	"mdqsync/internal/mdq"
	"mdqsync/internal/testsupport"
)

const testEntityID = "https://sp.example.org/shibboleth"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*mdq.Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := mdq.NewClientWithDoer(srv.URL+"/", "mdqsync/test", srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewClientWithDoer: %v", err)
	}
	return client, t.TempDir()
}

func xmlHandler(contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func TestFetchStoresSignedDocument(t *testing.T) {
	digest := fingerprint.DigestIdentifier(testEntityID)
	body := testsupport.EntityXML(testEntityID, "<ds:Signature/>")

	var requestURI, userAgent string
	client, dir := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requestURI = r.RequestURI
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		_, _ = w.Write([]byte(body))
	})

	if err := client.Fetch(context.Background(), dir, digest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if want := "/entities/%7Bsha1%7D" + digest; requestURI != want {
		t.Fatalf("request uri = %q, want %q", requestURI, want)
	}
	if userAgent != "mdqsync/test" {
		t.Fatalf("unexpected user agent %q", userAgent)
	}
	stored := filepath.Join(dir, "%7Bsha1%7D"+digest)
	if got := testsupport.ReadFile(t, stored); got != body {
		t.Fatalf("stored body mismatch: %q", got)
	}
}

func TestFetchAcceptsByteOrderMark(t *testing.T) {
	digest := fingerprint.DigestIdentifier(testEntityID)
	body := "\ufeff" + testsupport.EntityXML(testEntityID, "<ds:Signature/>")
	client, dir := newTestClient(t, xmlHandler("application/xml", body))

	if err := client.Fetch(context.Background(), dir, digest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, mdq.SignedFileName(digest))); got != body {
		t.Fatal("stored body should be kept byte for byte")
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	chunk := bytes.Repeat([]byte(" "), 1<<20)
	client, dir := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(testsupport.EntityXML(testEntityID, "")))
		for range 65 {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	})

	err := client.Fetch(context.Background(), dir, fingerprint.DigestIdentifier(testEntityID))
	var fatal *mdq.FatalFetchError
	if !errors.As(err, &fatal) || fatal.Reason != mdq.ReasonBodyTooLarge {
		t.Fatalf("expected body-too-large fatal error, got %v", err)
	}
	if fatal.ErrorKind() != "external" {
		t.Fatalf("unexpected kind %q", fatal.ErrorKind())
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("oversized body must not be stored, found %d files", len(entries))
	}
}

func TestFetchRejectsUnexpectedResponses(t *testing.T) {
	valid := testsupport.EntityXML(testEntityID, "")
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  mdq.Reason
		message string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusInternalServerError)
			},
			reason:  mdq.ReasonStatus,
			message: "mdq returned 500",
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			reason:  mdq.ReasonStatus,
			message: "mdq returned 404",
		},
		{
			name:    "missing content type",
			handler: xmlHandler("", valid),
			reason:  mdq.ReasonNoContentType,
			message: "no content-type",
		},
		{
			name:    "html content type",
			handler: xmlHandler("text/html", valid),
			reason:  mdq.ReasonContentType,
			message: `invalid content-type "text/html"`,
		},
		{
			name:    "broken xml",
			handler: xmlHandler("application/xml", "<md:EntityDescriptor"),
			reason:  mdq.ReasonInvalidXML,
			message: "invalid XML",
		},
		{
			name:    "no entity id",
			handler: xmlHandler("application/xml", `<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata"/>`),
			reason:  mdq.ReasonMissingEntityID,
			message: "without entityID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, dir := newTestClient(t, tt.handler)
			digest := fingerprint.DigestIdentifier(testEntityID)

			err := client.Fetch(context.Background(), dir, digest)
			if !errors.Is(err, mdq.ErrFatalFetch) {
				t.Fatalf("expected fatal fetch error, got %v", err)
			}
			var fatal *mdq.FatalFetchError
			if !errors.As(err, &fatal) {
				t.Fatalf("expected *FatalFetchError, got %T", err)
			}
			if fatal.Reason != tt.reason {
				t.Fatalf("reason = %s, want %s", fatal.Reason, tt.reason)
			}
			if !strings.Contains(err.Error(), tt.message) || !strings.Contains(err.Error(), "%7Bsha1%7D"+digest) {
				t.Fatalf("unexpected message %q", err.Error())
			}
			entries, readErr := os.ReadDir(dir)
			if readErr != nil {
				t.Fatal(readErr)
			}
			if len(entries) != 0 {
				t.Fatalf("rejected fetch must not write files, found %d", len(entries))
			}
		})
	}
}

func TestFetchTransportFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := mdq.NewClientWithDoer(base, "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = client.Fetch(context.Background(), t.TempDir(), "abc")
	var fatal *mdq.FatalFetchError
	if !errors.As(err, &fatal) || fatal.Reason != mdq.ReasonTransport {
		t.Fatalf("expected transport fatal error, got %v", err)
	}
	if fatal.ErrorKind() != "network" {
		t.Fatalf("unexpected kind %q", fatal.ErrorKind())
	}
}

func TestEntityURLKeepsBasePath(t *testing.T) {
	client, err := mdq.NewClientWithDoer("https://mdq.example.org/global/", "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := client.EntityURL("abc"), "https://mdq.example.org/global/entities/%7Bsha1%7Dabc"; got != want {
		t.Fatalf("EntityURL = %q, want %q", got, want)
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := mdq.NewClientWithDoer("mdq.example.org", "", nil, nil); err == nil {
		t.Fatal("expected error for relative service url")
	}
}

func TestRemoveSigned(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteRaw(t, dir, mdq.SignedFileName("abc"), "<x/>")

	removed, err := mdq.RemoveSigned(dir, "abc")
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
	removed, err = mdq.RemoveSigned(dir, "abc")
	if err != nil || removed {
		t.Fatalf("expected no-op for missing file, got removed=%v err=%v", removed, err)
	}
}
