package actors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/design4music/sni-platform-sub004/internal/domain"
	"github.com/design4music/sni-platform-sub004/internal/normalizer"
)

func fixtureVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	path := writeFixture(t, fixtureCSV)
	actors, err := LoadCSV(path, Options{})
	require.NoError(t, err)
	vocab, err := New(actors)
	require.NoError(t, err)
	return vocab
}

func TestFirstHit(t *testing.T) {
	vocab := fixtureVocabulary(t)

	tests := []struct {
		name string
		text string
		code string
		ok   bool
	}{
		{
			name: "gate headline hits earliest loaded entity",
			text: "EU imposes sanctions on Iranian officials",
			code: "EU",
			ok:   true,
		},
		{
			name: "word boundary blocks eu inside museum",
			text: "Visitors flock to the museum reopening",
			ok:   false,
		},
		{
			name: "iranian matches via dedicated alias",
			text: "Iranian oil exports surge despite sanctions",
			code: "IR",
			ok:   true,
		},
		{
			name: "uppercase input is normalized before matching",
			text: "CHINA AND EUROPEAN UNION RESUME TALKS",
			code: "CN",
			ok:   true,
		},
		{
			name: "accented alias",
			text: "Cumbre entre Estados Unidos y China",
			code: "US",
			ok:   true,
		},
		{
			name: "cyrillic word boundary",
			text: "Китай и Евросоюз возобновили переговоры",
			code: "CN",
			ok:   true,
		},
		{
			name: "no actor present",
			text: "Local bakery wins regional bread award",
			ok:   false,
		},
		{
			name: "empty input",
			text: "",
			ok:   false,
		},
		{
			name: "whitespace only",
			text: "   \t  ",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := vocab.FirstHit(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFirstHitPrimaryAliasRoundTrip(t *testing.T) {
	vocab := fixtureVocabulary(t)

	for _, actor := range vocab.Actors() {
		code, ok := vocab.FirstHit(normalizer.Normalize(actor.Aliases[0]))
		require.True(t, ok, "primary alias of %s should hit", actor.Code)
		assert.Equal(t, actor.Code, code)
	}
}

func TestFirstHitCJKSubstring(t *testing.T) {
	vocab, err := New([]domain.Actor{
		{Code: "CN", Aliases: []string{"China", "中国"}},
		{Code: "US", Aliases: []string{"United States", "美国"}},
	})
	require.NoError(t, err)

	// No whitespace between tokens; CJK aliases match as substrings.
	code, ok := vocab.FirstHit("中国警告美国不要干预台湾问题")
	require.True(t, ok)
	assert.Equal(t, "CN", code)

	hits := vocab.AllHits("中国警告美国不要干预台湾问题")
	assert.Equal(t, []string{"CN", "US"}, hits)
}

func TestAllHits(t *testing.T) {
	vocab := fixtureVocabulary(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two entities in load order",
			text: "Iran warns European Union over new sanctions",
			want: []string{"EU", "IR"},
		},
		{
			name: "entity counted once across aliases",
			text: "United States and USA appear twice here",
			want: []string{"US"},
		},
		{
			name: "three entities",
			text: "USA, China and Iran meet in Geneva",
			want: []string{"US", "CN", "IR"},
		},
		{
			name: "no hits",
			text: "quarterly earnings beat expectations",
			want: nil,
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vocab.AllHits(tt.text))
		})
	}
}

func TestAliasCount(t *testing.T) {
	vocab := fixtureVocabulary(t)
	assert.Equal(t, len(vocab.matchers), vocab.AliasCount())
	assert.Greater(t, vocab.AliasCount(), 0)
}

func TestHasCJKOrThai(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"中国", true},
		{"日本", true},
		{"ひらがな", true},
		{"カタカナ", true},
		{"ประเทศไทย", true},
		{"United States", false},
		{"États-Unis", false},
		{"Россия", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, hasCJKOrThai(tt.in))
		})
	}
}
