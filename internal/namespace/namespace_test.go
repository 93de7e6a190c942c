package namespace

import (
	"errors"
	"reflect"
	"testing"
)

var known = []string{"amazon_namespace", "nvidia_namespace"}

func TestResolve_ExplicitMatch(t *testing.T) {
	res, err := Resolve("irrelevant", []string{"Amazon"}, known)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Mode != ModeExplicit {
		t.Errorf("mode = %q, want explicit", res.Mode)
	}
	if !reflect.DeepEqual(res.Matched, []string{"amazon_namespace"}) {
		t.Errorf("matched = %v, want [amazon_namespace]", res.Matched)
	}
	if len(res.Unmatched) != 0 {
		t.Errorf("unmatched = %v, want empty", res.Unmatched)
	}
}

func TestResolve_ExplicitUnmatched(t *testing.T) {
	res, err := Resolve("irrelevant", []string{"Tesla"}, known)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(res.Matched) != 0 {
		t.Errorf("matched = %v, want empty", res.Matched)
	}
	if !reflect.DeepEqual(res.Unmatched, []string{"Tesla"}) {
		t.Errorf("unmatched = %v, want [Tesla]", res.Unmatched)
	}
}

func TestResolve_ExplicitMixed(t *testing.T) {
	res, err := Resolve("q", []string{"NVIDIA", "Tesla", "nvidia"}, known)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Duplicate hints resolve to the same namespace once.
	if !reflect.DeepEqual(res.Matched, []string{"nvidia_namespace"}) {
		t.Errorf("matched = %v, want [nvidia_namespace]", res.Matched)
	}
	if !reflect.DeepEqual(res.Unmatched, []string{"Tesla"}) {
		t.Errorf("unmatched = %v, want [Tesla]", res.Unmatched)
	}
}

func TestResolve_ExplicitWhitespaceNormalization(t *testing.T) {
	knownWide := []string{"berkshire_hathaway_namespace"}

	res, err := Resolve("q", []string{"  Berkshire   Hathaway "}, knownWide)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !reflect.DeepEqual(res.Matched, []string{"berkshire_hathaway_namespace"}) {
		t.Errorf("matched = %v, want [berkshire_hathaway_namespace]", res.Matched)
	}
}

func TestResolve_ExplicitHintMatchesMany(t *testing.T) {
	knownMany := []string{"amazon_10k_namespace", "amazon_10q_namespace", "nvidia_namespace"}

	res, err := Resolve("q", []string{"amazon"}, knownMany)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{"amazon_10k_namespace", "amazon_10q_namespace"}
	if !reflect.DeepEqual(res.Matched, want) {
		t.Errorf("matched = %v, want %v", res.Matched, want)
	}
}

func TestResolve_ImplicitMatch(t *testing.T) {
	res, err := Resolve("What were Amazon's 2023 revenues?", nil, known)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Mode != ModeImplicit {
		t.Errorf("mode = %q, want implicit", res.Mode)
	}
	if !reflect.DeepEqual(res.Matched, []string{"amazon_namespace"}) {
		t.Errorf("matched = %v, want [amazon_namespace]", res.Matched)
	}
	if len(res.Unmatched) != 0 {
		t.Errorf("unmatched = %v, want empty in implicit mode", res.Unmatched)
	}
}

func TestResolve_ImplicitNoMatch(t *testing.T) {
	res, err := Resolve("What is the weather in Paris?", nil, known)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Matched) != 0 {
		t.Errorf("matched = %v, want empty", res.Matched)
	}
}

func TestResolve_ImplicitMultiple(t *testing.T) {
	res, err := Resolve("Compare nvidia and amazon margins", nil, known)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Order follows the known-namespace order, not query order.
	want := []string{"amazon_namespace", "nvidia_namespace"}
	if !reflect.DeepEqual(res.Matched, want) {
		t.Errorf("matched = %v, want %v", res.Matched, want)
	}
}

func TestResolve_ImplicitSubstringOvermatch(t *testing.T) {
	// Known limitation: "ibm" substring-matches "ibmcorp" in the query.
	res, err := Resolve("tell me about ibmcorp", nil, []string{"ibm_namespace"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !reflect.DeepEqual(res.Matched, []string{"ibm_namespace"}) {
		t.Errorf("matched = %v, want [ibm_namespace] (documented over-match)", res.Matched)
	}
}

func TestResolve_EmptyDirectory(t *testing.T) {
	_, err := Resolve("anything", []string{"Amazon"}, nil)
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Errorf("expected ErrDirectoryUnavailable, got %v", err)
	}
}
