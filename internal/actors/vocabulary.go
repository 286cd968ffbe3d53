// Package actors loads the geopolitical actor vocabulary and matches actor
// aliases in normalized title text. The vocabulary is built once at process
// start and is immutable afterwards, so it can be shared without locking.
package actors

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/design4music/sni-platform-sub004/internal/domain"
)

// Short codes that stay usable as bare aliases despite the short-token
// filter.
var defaultAllowShort = []string{
	"US", "USA", "UK", "UAE", "UN", "EU", "NATO", "WHO", "IMF",
	"G7", "G20", "BRICS", "ASEAN",
}

// Bare words too ambiguous to act as aliases on their own.
var defaultDenyAliases = []string{"america", "states"}

// Options tunes the alias usability filter. Zero value applies the
// defaults.
type Options struct {
	AllowShort  []string
	DenyAliases []string
}

func (o Options) allowShort() map[string]struct{} {
	list := o.AllowShort
	if list == nil {
		list = defaultAllowShort
	}
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}

func (o Options) denyAliases() map[string]struct{} {
	list := o.DenyAliases
	if list == nil {
		list = defaultDenyAliases
	}
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}

// rawEntity is one vocabulary source row: per-language alias lists in
// column order, the first aliases_en entry being the primary English name.
type rawEntity struct {
	ID      string
	Columns [][]string
}

// buildActors flattens language columns into per-entity alias lists,
// deduplicates case-insensitively preserving first-seen order, and applies
// the usability filter. Entities left without aliases are dropped.
func buildActors(rows []rawEntity, opts Options) []domain.Actor {
	allow := opts.allowShort()
	deny := opts.denyAliases()

	var actors []domain.Actor
	for _, row := range rows {
		code := strings.TrimSpace(row.ID)
		if code == "" {
			continue
		}

		seen := make(map[string]struct{})
		var aliases []string
		for _, column := range row.Columns {
			for _, alias := range column {
				alias = strings.TrimSpace(alias)
				if alias == "" {
					continue
				}
				lower := strings.ToLower(alias)
				if _, dup := seen[lower]; dup {
					continue
				}
				seen[lower] = struct{}{}
				if !usableAlias(alias, allow, deny) {
					continue
				}
				aliases = append(aliases, alias)
			}
		}

		if len(aliases) == 0 {
			continue
		}
		actors = append(actors, domain.Actor{Code: code, Aliases: aliases})
	}
	return actors
}

// usableAlias applies the deny-list, then the short-token rule: bare
// 2-3-letter uppercase tokens and bare 2-letter lowercase tokens are
// dropped unless allow-listed.
func usableAlias(alias string, allow, deny map[string]struct{}) bool {
	if _, denied := deny[strings.ToLower(alias)]; denied {
		return false
	}
	if _, allowed := allow[alias]; allowed {
		return true
	}

	runes := []rune(alias)
	n := len(runes)
	if n >= 2 && n <= 3 && isBareUpper(runes) {
		return false
	}
	if n == 2 && isBareLower(runes) {
		return false
	}
	return true
}

func isBareUpper(runes []rune) bool {
	hasLetter := false
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasLetter = true
		case unicode.IsDigit(r):
		default:
			return false
		}
	}
	return hasLetter
}

func isBareLower(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// Vocabulary is the compiled actor matcher. Pattern iteration order is the
// load order: each entity's aliases in sequence, entities in source order.
type Vocabulary struct {
	actors   []domain.Actor
	matchers []aliasMatcher
}

// New compiles a vocabulary from loaded actors. It fails fast when the
// source yielded no entities.
func New(actorList []domain.Actor) (*Vocabulary, error) {
	if len(actorList) == 0 {
		return nil, fmt.Errorf("actor vocabulary is empty")
	}

	v := &Vocabulary{actors: actorList}
	for _, actor := range actorList {
		for _, alias := range actor.Aliases {
			m, err := newAliasMatcher(actor.Code, alias)
			if err != nil {
				return nil, fmt.Errorf("compile alias %q for %s: %w", alias, actor.Code, err)
			}
			v.matchers = append(v.matchers, m)
		}
	}
	return v, nil
}

// Actors returns the loaded entities in load order.
func (v *Vocabulary) Actors() []domain.Actor {
	return v.actors
}

// AliasCount returns the number of compiled alias patterns.
func (v *Vocabulary) AliasCount() int {
	return len(v.matchers)
}
