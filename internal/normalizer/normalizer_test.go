package normalizer

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
		{"lowercases", "EU Imposes Sanctions", "eu imposes sanctions"},
		{"collapses whitespace", "  two\t spaces \n here ", "two spaces here"},
		{"nfkc folds fullwidth", "ＮＡＴＯ summit", "nato summit"},
		{"empty", "", ""},
		{"cjk passes through", "中国警告美国", "中国警告美国"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"US–Taiwan partnership remains a \"cornerstone of stability\" – Reuters",
		"ＮＡＴＯ  Ｓｕｍｍｉｔ",
		"中国警告美国不要干预台湾问题",
		"  mixed   Case \t Title  ",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		publisher string
		want      string
	}{
		{
			name:      "strips en dash suffix",
			raw:       "US–Taiwan partnership remains a \"cornerstone of stability\" – Reuters",
			publisher: "Reuters",
			want:      "US–Taiwan partnership remains a \"cornerstone of stability\"",
		},
		{
			name:      "strips em dash suffix",
			raw:       "Markets rally on ceasefire hopes — Bloomberg",
			publisher: "Bloomberg",
			want:      "Markets rally on ceasefire hopes",
		},
		{
			name:      "strips hyphen suffix",
			raw:       "Oil prices slide - Financial Times",
			publisher: "Financial Times",
			want:      "Oil prices slide",
		},
		{
			name:      "publisher match is case sensitive",
			raw:       "Oil prices slide - financial times",
			publisher: "Financial Times",
			want:      "Oil prices slide - financial times",
		},
		{
			name:      "no suffix leaves title intact",
			raw:       "Un-dashed headline",
			publisher: "Reuters",
			want:      "Un-dashed headline",
		},
		{
			name:      "interior dash untouched",
			raw:       "Reuters - exclusive report on trade",
			publisher: "Reuters",
			want:      "Reuters - exclusive report on trade",
		},
		{
			name:      "empty publisher skips stripping",
			raw:       "Headline - Reuters",
			publisher: "",
			want:      "Headline - Reuters",
		},
		{
			name:      "whitespace collapsed",
			raw:       "Two   spaces\there – Reuters",
			publisher: "Reuters",
			want:      "Two spaces here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayTitle(tt.raw, tt.publisher))
		})
	}
}

func TestNormTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips quotes keeps informative punctuation",
			input: "US–Taiwan partnership remains a \"cornerstone of stability\"",
			want:  "us-taiwan partnership remains a cornerstone of stability",
		},
		{
			name:  "keeps sentence punctuation",
			input: "War over? Not yet: talks continue, slowly.",
			want:  "war over? not yet: talks continue, slowly.",
		},
		{
			name:  "drops symbols",
			input: "Stocks +5% ($300bn) ★ record",
			want:  "stocks 5 300bn record",
		},
		{
			name:  "cjk survives",
			input: "中国警告美国不要干预台湾问题",
			want:  "中国警告美国不要干预台湾问题",
		},
		{
			name:  "em dash folds to hyphen",
			input: "risk—reward",
			want:  "risk-reward",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormTitle(tt.input))
		})
	}
}

func TestContentHash(t *testing.T) {
	h := ContentHash("us-taiwan partnership", "reuters.com")

	assert.Len(t, h, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", h)

	// Stable across calls, sensitive to every input.
	assert.Equal(t, h, ContentHash("us-taiwan partnership", "reuters.com"))
	assert.NotEqual(t, h, ContentHash("us-taiwan partnership", "apnews.com"))
	assert.NotEqual(t, h, ContentHash("us-taiwan partnership!", "reuters.com"))
}

func TestContentHashEmptyDomain(t *testing.T) {
	h := ContentHash("some title", "")
	assert.Len(t, h, 16)
	assert.NotEqual(t, ContentHash("some title", "x"), h)
}
