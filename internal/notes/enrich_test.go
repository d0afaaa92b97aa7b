package notes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lectern-app/lectern/internal/retrieval"
)

func TestEnricher_Enrich_NilClientDisabled(t *testing.T) {
	e := NewEnricher(nil)

	result, err := e.Enrich(context.Background(), "s1", "some speech", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "" {
		t.Errorf("expected empty result with nil client, got %q", result)
	}
}

func TestEnricher_Enrich_IncludesContext(t *testing.T) {
	client := &fakeClient{replies: []string{"- point one\n- point two\n"}}
	e := NewEnricher(client)

	chunks := []retrieval.Chunk{{Content: "eigenvalues definition"}}
	prior := &StructuredNote{Content: "previous round notes"}

	result, err := e.Enrich(context.Background(), "s1", "the professor said", chunks, prior)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "- point one\n- point two" {
		t.Errorf("expected trimmed reply, got %q", result)
	}

	prompt := client.requests[0].User
	for _, want := range []string{"eigenvalues definition", "previous round notes", "the professor said"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
	if client.requests[0].MaxTokens != 400 {
		t.Errorf("expected MaxTokens 400, got %d", client.requests[0].MaxTokens)
	}
}

func TestEnricher_Enrich_NoRetryOnError(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("timeout")}, replies: []string{""}}
	e := NewEnricher(client)

	if _, err := e.Enrich(context.Background(), "s1", "speech", nil, nil); err == nil {
		t.Fatal("expected error from failing client")
	}
	if len(client.requests) != 1 {
		t.Errorf("expected exactly one attempt on the live path, got %d", len(client.requests))
	}
}
