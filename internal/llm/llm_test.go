package llm

import "testing"

func TestParseModel(t *testing.T) {
	provider, model, err := ParseModel("openai/gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != "openai" || model != "gpt-4o-mini" {
		t.Errorf("expected openai/gpt-4o-mini split, got %q %q", provider, model)
	}
}

func TestParseModel_ModelNameWithSlash(t *testing.T) {
	provider, model, err := ParseModel("gemini/models/gemini-2.0-flash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider != "gemini" || model != "models/gemini-2.0-flash" {
		t.Errorf("expected split on first slash only, got %q %q", provider, model)
	}
}

func TestParseModel_Invalid(t *testing.T) {
	for _, input := range []string{"", "gpt-4o", "/gpt-4o", "openai/"} {
		if _, _, err := ParseModel(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	if _, err := NewClient("cohere", "key", "model"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewClient_KnownProviders(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "gemini"} {
		client, err := NewClient(provider, "test-key", "test-model")
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", provider, err)
		}
		if client == nil {
			t.Errorf("expected client for %s", provider)
		}
	}
}
