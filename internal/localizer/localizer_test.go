package localizer

import (
	"testing"

	"wavespush/internal/models"
)

func TestInterpolate_NoPlaceholders(t *testing.T) {
	s := "Order filled at last!"
	if got := Interpolate(s, nil); got != s {
		t.Errorf("expected text without placeholders unchanged, got %q", got)
	}
}

func TestInterpolate_KnownKey(t *testing.T) {
	got := Interpolate("[%s:pair]", map[string]string{"pair": "BTC / WAVES"})
	if got != "BTC / WAVES" {
		t.Errorf("expected substituted value, got %q", got)
	}
}

func TestInterpolate_UnknownKeyRendersVisible(t *testing.T) {
	got := Interpolate("price of [%s:unknownThing] changed", map[string]string{"pair": "x"})
	want := "price of <unknownThing> changed"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestInterpolate_MixedPlaceholders(t *testing.T) {
	subs := map[string]string{"amountToken": "BTC", "value": "5"}
	got := Interpolate("[%s:amountToken] crossed [%s:value] ([%s:missing])", subs)
	want := "BTC crossed 5 (<missing>)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestInterpolate_IgnoresMalformedPlaceholders(t *testing.T) {
	for _, s := range []string{"[%s:with space]", "[%s:]", "[%d:pair]", "[%s:pair1]"} {
		if got := Interpolate(s, map[string]string{"pair": "x"}); got != s {
			t.Errorf("malformed placeholder %q should pass through, got %q", s, got)
		}
	}
}

func testTable() map[string]map[string]string {
	return map[string]map[string]string{
		"orderFilledTitle": {
			"en": "Order filled",
			"ru": "Ордер исполнен",
		},
		"priceAlertMessage": {
			"en": "[%s:pair] reached [%s:value]",
		},
	}
}

func TestTranslate_DeviceLanguage(t *testing.T) {
	l := New()
	l.Load(testTable())

	got, err := l.Translate("ru", "orderFilledTitle")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if got != "Ордер исполнен" {
		t.Errorf("expected russian text, got %q", got)
	}
}

func TestTranslate_FallsBackToEnglish(t *testing.T) {
	l := New()
	l.Load(testTable())

	got, err := l.Translate("de", "priceAlertMessage")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if got != "[%s:pair] reached [%s:value]" {
		t.Errorf("expected english fallback, got %q", got)
	}
}

func TestTranslate_MissingEverywhereIsFatal(t *testing.T) {
	l := New()
	l.Load(testTable())

	if _, err := l.Translate("en", "noSuchKey"); !models.IsFatal(err) {
		t.Errorf("expected fatal error for unknown key, got %v", err)
	}

	l.Load(map[string]map[string]string{"orderFilledTitle": {"ru": "x"}})
	if _, err := l.Translate("de", "orderFilledTitle"); !models.IsFatal(err) {
		t.Errorf("expected fatal error without english fallback, got %v", err)
	}
}

func TestRender_Interpolates(t *testing.T) {
	l := New()
	l.Load(testTable())

	got, err := l.Render("de", "priceAlertMessage", map[string]string{
		"pair":  "BTC / USDN",
		"value": "50000",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if got != "BTC / USDN reached 50000" {
		t.Errorf("unexpected rendered text %q", got)
	}
}

func TestMissing_ReportsGaps(t *testing.T) {
	l := New()
	l.Load(testTable())

	missing := l.Missing([]string{"orderFilledTitle", "priceAlertMessage"})
	want := map[string]bool{"ru/priceAlertMessage": true}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing entries, got %v", len(want), missing)
	}
	for _, m := range missing {
		if !want[m] {
			t.Errorf("unexpected missing entry %q", m)
		}
	}
}
