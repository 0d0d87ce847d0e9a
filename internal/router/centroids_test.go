package router

import (
	"reflect"
	"testing"
)

func TestFallbackOrderPutsRequestedFirst(t *testing.T) {
	got := fallbackOrder("simple")
	want := []string{"simple", "complex", "reasoning"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fallbackOrder(simple) = %v, want %v", got, want)
	}
}

func TestFallbackOrderDedupesRequestedTier(t *testing.T) {
	got := fallbackOrder("reasoning")
	want := []string{"reasoning", "complex", "simple"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fallbackOrder(reasoning) = %v, want %v", got, want)
	}
}

func TestFallbackOrderEmptyRequested(t *testing.T) {
	got := fallbackOrder("")
	want := []string{"complex", "reasoning", "simple"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fallbackOrder(\"\") = %v, want %v", got, want)
	}
}

func TestFallbackOrderUnknownRequestedTierIsKept(t *testing.T) {
	got := fallbackOrder("free")
	want := []string{"free", "complex", "reasoning", "simple"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fallbackOrder(free) = %v, want %v", got, want)
	}
}

func TestReferencePromptsCoverAllTiers(t *testing.T) {
	for _, tier := range []string{"simple", "complex", "reasoning", "free"} {
		if len(referencePrompts[tier]) == 0 {
			t.Errorf("referencePrompts[%q] is empty", tier)
		}
	}
}
