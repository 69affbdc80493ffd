package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Ölkühler", "olkuhler"},
		{"german umlauts", "Kühlmittelschläuche", "kuhlmittelschlauche"},
		{"sharp s", "Straße", "strasse"},
		{"french accents", "échangeur thermique dégâts", "echangeur thermique degats"},
		{"cedilla", "remplaçant", "remplacant"},
		{"punctuation collapses to space", "oil-cooler", "oil cooler"},
		{"slash and dots", "Dichtung/Ölkühler inkl. Kleinteile", "dichtung olkuhler inkl kleinteile"},
		{"multiple separators collapse", "oil -- cooler", "oil cooler"},
		{"leading trailing noise", "  (Ersatz) ", "ersatz"},
		{"digits kept", "Ventil 4x", "ventil 4x"},
		{"empty", "", ""},
		{"only punctuation", "-/.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Ölkühler ersetzen",
		"Câble d'embrayage / remplacé",
		"STOSSDÄMPFER  vorne-links",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize must be idempotent for %q", in)
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"11 42-7.807/990", "11427807990"},
		{"a 651 180 01 10", "A6511800110"},
		{"11427807990", "11427807990"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.input))
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"olkuhler", "ersetzen"}, Tokens("Ölkühler ersetzen!"))
	assert.Nil(t, Tokens("   "))
}

func TestTermMatches_LongTerms(t *testing.T) {
	assert.True(t, TermMatches("ölkühler", "Ölkühler ersetzen inkl. Dichtung"))
	assert.True(t, TermMatches("radiateur d'huile", "Remplacement radiateur d'huile moteur"))
	assert.False(t, TermMatches("turbolader", "Ölkühler ersetzen"))
}

// Short dictionary terms must never substring-match inside longer words; a
// three-letter code matching mid-word once approved the wrong repair.
func TestTermMatches_ShortTokenGuard(t *testing.T) {
	tests := []struct {
		name string
		term string
		text string
		want bool
	}{
		{"short term inside long word", "asr", "abgasrueckfuehrung pruefen", false},
		{"short term as exact token", "asr", "ASR Sensor ersetzen", true},
		{"short term alone", "egr", "EGR", true},
		{"short description vs longer term", "abgasrueckfuehrung", "asr", false},
		{"short term not present", "abs", "bremsleitung entlueften", false},
		{"short term with punctuation", "kat", "Kat. ersetzen", true},
		{"two-char term mid-word", "ag", "wagenheber position", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TermMatches(tt.term, tt.text))
		})
	}
}
