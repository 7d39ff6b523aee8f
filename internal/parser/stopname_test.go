package parser

import (
	"slices"
	"testing"
)

func TestNormalizeStopName(t *testing.T) {
	tests := []struct {
		raw        string
		candidates []string
		extreme    Extreme
	}{
		{"ул. Ленина (Дом книги)", []string{"Ленина", "Дом книги"}, ExtremeNone},
		{"Вокзал отпр.", []string{"Вокзал"}, ExtremeStart},
		{"Вокзал отпр", []string{"Вокзал"}, ExtremeStart},
		{"Кремль приб.", []string{"Кремль"}, ExtremeFinish},
		{"ул.Ленина", []string{"Ленина"}, ExtremeNone},
		{"пл. Победы", []string{"Победы"}, ExtremeNone},
		{"пр. Мира (ул. Славная)", []string{"Мира", "Славная"}, ExtremeNone},
		{"Больница", []string{"Больница"}, ExtremeNone},
		{"  Рынок  ", []string{"Рынок"}, ExtremeNone},
		{"(Дом книги)", []string{"Дом книги"}, ExtremeNone},
		{"ул.", nil, ExtremeNone},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got := NormalizeStopName(tc.raw)
			if got.Raw != tc.raw {
				t.Errorf("Raw = %q", got.Raw)
			}
			if !slices.Equal(got.Candidates, tc.candidates) {
				t.Errorf("Candidates = %q, want %q", got.Candidates, tc.candidates)
			}
			if got.Extreme != tc.extreme {
				t.Errorf("Extreme = %q, want %q", got.Extreme, tc.extreme)
			}
		})
	}
}

func TestStopNameParts(t *testing.T) {
	tests := []struct {
		raw, main, alias, bind string
	}{
		{"ул. Ленина (Дом книги)", "Ленина", "Дом книги", "Ленина"},
		{"Вокзал отпр.", "Вокзал", "", "Вокзал"},
		{"(Дом книги)", "", "Дом книги", "Дом книги"},
		{"ул. (пл.)", "", "", ""},
	}
	for _, tc := range tests {
		got := NormalizeStopName(tc.raw)
		if got.Main != tc.main || got.Alias != tc.alias {
			t.Errorf("NormalizeStopName(%q) = main %q alias %q, want %q %q", tc.raw, got.Main, got.Alias, tc.main, tc.alias)
		}
		if b := got.BindName(); b != tc.bind {
			t.Errorf("BindName(%q) = %q, want %q", tc.raw, b, tc.bind)
		}
	}
}

func TestNormalizeStopNameConsumesOneMarker(t *testing.T) {
	got := NormalizeStopName("Вокзал отпр. приб.")
	if got.Extreme != ExtremeStart {
		t.Errorf("Extreme = %q, want start", got.Extreme)
	}
	if !slices.Equal(got.Candidates, []string{"Вокзал приб."}) {
		t.Errorf("Candidates = %q", got.Candidates)
	}
}
