package sessioncode

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAlphabetExcludesAmbiguousSymbols(t *testing.T) {
	if len(Alphabet) != 32 {
		t.Fatalf("alphabet length = %d, want 32", len(Alphabet))
	}
	for _, forbidden := range "01IO" {
		if strings.ContainsRune(Alphabet, forbidden) {
			t.Errorf("alphabet contains ambiguous symbol %q", forbidden)
		}
	}
	seen := map[rune]bool{}
	for _, r := range Alphabet {
		if seen[r] {
			t.Errorf("alphabet contains duplicate symbol %q", r)
		}
		seen[r] = true
	}
}

func TestGenerateShape(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := Generate()
		if len(code) != Length {
			t.Fatalf("Generate() = %q, want length %d", code, Length)
		}
		if !IsValid(code) {
			t.Fatalf("Generate() = %q, contains symbol outside alphabet", code)
		}
	}
}

// TestGenerateUniformity draws 100k codes and checks per-position symbol
// frequencies with a chi-square statistic. With 31 degrees of freedom the
// statistic has mean 31; 80 is far enough out that a pass is overwhelmingly
// likely for a uniform generator while modulo bias over a non-divisor
// alphabet would blow well past it.
func TestGenerateUniformity(t *testing.T) {
	const n = 100000
	counts := [Length][32]int{}
	index := map[byte]int{}
	for i := 0; i < len(Alphabet); i++ {
		index[Alphabet[i]] = i
	}
	for i := 0; i < n; i++ {
		code := Generate()
		for pos := 0; pos < Length; pos++ {
			counts[pos][index[code[pos]]]++
		}
	}
	expected := float64(n) / 32
	for pos := 0; pos < Length; pos++ {
		chi2 := 0.0
		for sym := 0; sym < 32; sym++ {
			diff := float64(counts[pos][sym]) - expected
			chi2 += diff * diff / expected
		}
		if chi2 > 80 {
			t.Errorf("position %d: chi-square = %.1f, distribution not uniform", pos, chi2)
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC234", true},
		{"ZZZZZZ", true},
		{"ABC23", false},   // too short
		{"ABC2345", false}, // too long
		{"ABC10O", false},  // ambiguous symbols
		{"abc234", false},  // lowercase
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValid(tt.code); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsUnique(t *testing.T) {
	ctx := context.Background()

	unique, err := IsUnique(ctx, "ABC234", func(context.Context, string) (bool, error) { return false, nil })
	if err != nil || !unique {
		t.Errorf("IsUnique with absent code = (%v, %v), want (true, nil)", unique, err)
	}

	unique, err = IsUnique(ctx, "ABC234", func(context.Context, string) (bool, error) { return true, nil })
	if err != nil || unique {
		t.Errorf("IsUnique with held code = (%v, %v), want (false, nil)", unique, err)
	}

	backendDown := errors.New("backend down")
	_, err = IsUnique(ctx, "ABC234", func(context.Context, string) (bool, error) { return false, backendDown })
	if !errors.Is(err, backendDown) {
		t.Errorf("IsUnique with failing check = %v, want wrapped backend error", err)
	}
}

func TestResolveUniqueFirstAttempt(t *testing.T) {
	checks := 0
	code, err := ResolveUnique(context.Background(), func(context.Context, string) (bool, error) {
		checks++
		return false, nil
	})
	if err != nil {
		t.Fatalf("ResolveUnique returned error: %v", err)
	}
	if checks != 1 {
		t.Errorf("existence check called %d times, want 1", checks)
	}
	if !IsValid(code) {
		t.Errorf("ResolveUnique returned malformed code %q", code)
	}
}

func TestResolveUniqueSucceedsOnFifthAttempt(t *testing.T) {
	checks := 0
	code, err := ResolveUnique(context.Background(), func(_ context.Context, c string) (bool, error) {
		checks++
		return checks <= 4, nil // first four candidates collide
	})
	if err != nil {
		t.Fatalf("ResolveUnique returned error: %v", err)
	}
	if checks != 5 {
		t.Errorf("existence check called %d times, want 5", checks)
	}
	if !IsValid(code) {
		t.Errorf("ResolveUnique returned malformed code %q", code)
	}
}

func TestResolveUniqueExhausted(t *testing.T) {
	checks := 0
	code, err := ResolveUnique(context.Background(), func(context.Context, string) (bool, error) {
		checks++
		return true, nil // every candidate collides
	})
	if checks != 5 {
		t.Errorf("existence check called %d times, want 5 (no infinite loop)", checks)
	}
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("ResolveUnique error = %v, want ErrGenerationExhausted", err)
	}
	if !IsValid(code) {
		t.Errorf("exhausted ResolveUnique should still return the last candidate, got %q", code)
	}
}

func TestResolveUniquePropagatesCheckFailure(t *testing.T) {
	backendDown := errors.New("backend down")
	checks := 0
	code, err := ResolveUnique(context.Background(), func(context.Context, string) (bool, error) {
		checks++
		return false, backendDown
	})
	if !errors.Is(err, backendDown) {
		t.Errorf("ResolveUnique error = %v, want wrapped backend error", err)
	}
	if code != "" {
		t.Errorf("ResolveUnique returned code %q alongside check failure", code)
	}
	if checks != 1 {
		t.Errorf("existence check called %d times after failure, want 1 (no blind retry)", checks)
	}
}
