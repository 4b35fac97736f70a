package lang

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Code
		ok   bool
	}{
		{"fr", FR, true},
		{" EN ", EN, true},
		{"ar", AR, true},
		{"es", "es", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTexts_GetOr(t *testing.T) {
	txt := Texts{FR: "Casier judiciaire", EN: "", AR: "السجل العدلي"}

	if got := txt.GetOr(EN, FR); got != "Casier judiciaire" {
		t.Errorf("GetOr(EN, FR) = %q, want French fallback", got)
	}
	if got := txt.GetOr(AR, FR); got != "السجل العدلي" {
		t.Errorf("GetOr(AR, FR) = %q, want Arabic", got)
	}
	if got := txt.Get("es"); got != "" {
		t.Errorf("Get(es) = %q, want empty", got)
	}
}

func TestIdentify_ArabicScript(t *testing.T) {
	id := NewIdentifier(EN)
	if got := id.Identify("كيف أحصل على شهادة الازدياد؟"); got != AR {
		t.Errorf("Identify(arabic) = %q, want ar", got)
	}
}

func TestIdentify_EmptyFallsBack(t *testing.T) {
	id := NewIdentifier(FR)
	for _, in := range []string{"", "   ", "1234 ?!"} {
		if got := id.Identify(in); got != FR {
			t.Errorf("Identify(%q) = %q, want fallback fr", in, got)
		}
	}
}

func TestIdentify_UsesDetector(t *testing.T) {
	id := NewIdentifier(EN)
	id.detect = func(string) (guess, bool) { return guess{code: FR, reliable: true}, true }
	if got := id.Identify("bonjour"); got != FR {
		t.Errorf("Identify = %q, want fr", got)
	}
}

func TestIdentify_DetectorInconclusive(t *testing.T) {
	id := NewIdentifier(EN)
	id.detect = func(string) (guess, bool) { return guess{}, false }
	if got := id.Identify("zzz"); got != EN {
		t.Errorf("Identify = %q, want en", got)
	}
}

func TestIdentify_UnreliableGuessFallsBack(t *testing.T) {
	id := NewIdentifier(AR)
	id.detect = func(string) (guess, bool) { return guess{code: FR}, true }
	if got := id.Identify("hello"); got != AR {
		t.Errorf("Identify = %q, want fallback ar", got)
	}
}

func TestIdentify_HintSettlesUnreliableGuess(t *testing.T) {
	var hinted []string
	id := NewIdentifier(FR, WithHints(func(text string) (Code, bool) {
		hinted = append(hinted, text)
		return EN, true
	}))
	id.detect = func(string) (guess, bool) { return guess{code: FR}, true }
	if got := id.Identify("hello"); got != EN {
		t.Errorf("Identify = %q, want hinted en", got)
	}

	id.detect = func(string) (guess, bool) { return guess{code: FR, reliable: true}, true }
	if got := id.Identify("bonjour tout le monde"); got != FR {
		t.Errorf("Identify = %q, want reliable fr", got)
	}
	if len(hinted) != 1 {
		t.Errorf("hint consulted %d times, want only for the unreliable guess", len(hinted))
	}
}

func TestIdentify_InconclusiveHintFallsBack(t *testing.T) {
	id := NewIdentifier(FR, WithHints(func(string) (Code, bool) { return "", false }))
	id.detect = func(string) (guess, bool) { return guess{code: EN}, true }
	if got := id.Identify("ok"); got != FR {
		t.Errorf("Identify = %q, want fallback fr", got)
	}
}

func TestIdentify_DetectorPanicRecovered(t *testing.T) {
	id := NewIdentifier(AR)
	id.detect = func(string) (guess, bool) { panic("boom") }
	if got := id.Identify("hello there"); got != AR {
		t.Errorf("Identify = %q, want fallback ar", got)
	}
}

func TestNewIdentifier_InvalidFallback(t *testing.T) {
	if got := NewIdentifier("xx").Fallback(); got != EN {
		t.Errorf("Fallback() = %q, want en", got)
	}
}
