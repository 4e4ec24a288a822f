package engine

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Clases de términos que consume el motor.
const (
	ClassHighArousal  = "high_arousal"
	ClassHelplessness = "helplessness"
	ClassCrisisTier3  = "crisis_tier3"
	ClassCrisisTier2  = "crisis_tier2"
)

var requiredClasses = []string{ClassHighArousal, ClassHelplessness, ClassCrisisTier3, ClassCrisisTier2}

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// KeywordTable es la tabla versionada: clase -> idioma -> términos.
type KeywordTable struct {
	Version string                         `yaml:"version"`
	Classes map[string]map[string][]string `yaml:"classes"`
}

// ParseKeywordTable decodifica una tabla YAML.
func ParseKeywordTable(data []byte) (KeywordTable, error) {
	var t KeywordTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return KeywordTable{}, fmt.Errorf("decode keyword table: %w", err)
	}
	return t, nil
}

// DefaultTableYAML devuelve una copia del YAML embebido.
func DefaultTableYAML() []byte {
	return append([]byte(nil), defaultLexiconYAML...)
}

// DefaultKeywordTable devuelve la tabla embebida en el binario.
func DefaultKeywordTable() KeywordTable {
	t, err := ParseKeywordTable(defaultLexiconYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Problems lista inconsistencias de la tabla. Vacío significa tabla utilizable.
func (t KeywordTable) Problems() []string {
	var out []string
	if strings.TrimSpace(t.Version) == "" {
		out = append(out, "missing version")
	}
	for _, class := range requiredClasses {
		langs, ok := t.Classes[class]
		if !ok || len(langs) == 0 {
			out = append(out, fmt.Sprintf("class %s is empty", class))
			continue
		}
		seen := map[string]string{}
		for _, lang := range sortedKeys(langs) {
			for _, term := range langs[lang] {
				norm := normalizeTerm(term)
				if norm == "" {
					out = append(out, fmt.Sprintf("class %s/%s has a blank term", class, lang))
					continue
				}
				if prev, dup := seen[norm]; dup {
					out = append(out, fmt.Sprintf("class %s: %q duplicated (%s, %s)", class, norm, prev, lang))
					continue
				}
				seen[norm] = lang
			}
		}
	}

	tier3 := t.flatten(ClassCrisisTier3)
	for _, term := range t.flatten(ClassCrisisTier2) {
		for _, t3 := range tier3 {
			if term == t3 {
				out = append(out, fmt.Sprintf("term %q listed in both crisis tiers", term))
			}
		}
	}
	return out
}

func (t KeywordTable) flatten(class string) []string {
	langs := t.Classes[class]
	seen := map[string]struct{}{}
	var out []string
	for _, lang := range sortedKeys(langs) {
		for _, term := range langs[lang] {
			norm := normalizeTerm(term)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			out = append(out, norm)
		}
	}
	return out
}

// Lexicon hace matching por substring sobre los términos de cada clase.
// Los términos se guardan en minúsculas; no se normalizan diacríticos.
type Lexicon struct {
	version string
	terms   map[string][]string
}

// NewLexicon construye un Lexicon a partir de una tabla válida.
func NewLexicon(t KeywordTable) (*Lexicon, error) {
	if problems := t.Problems(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid keyword table: %s", strings.Join(problems, "; "))
	}
	l := &Lexicon{version: t.Version, terms: make(map[string][]string, len(t.Classes))}
	for class := range t.Classes {
		l.terms[class] = t.flatten(class)
	}
	return l, nil
}

// LoadLexicon lee la tabla desde path; path vacío usa la tabla embebida.
func LoadLexicon(path string) (*Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	t, err := ParseKeywordTable(data)
	if err != nil {
		return nil, err
	}
	return NewLexicon(t)
}

var (
	defaultLexiconOnce sync.Once
	defaultLexicon     *Lexicon
)

// DefaultLexicon devuelve el Lexicon de la tabla embebida.
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		l, err := NewLexicon(DefaultKeywordTable())
		if err != nil {
			panic(err)
		}
		defaultLexicon = l
	})
	return defaultLexicon
}

func (l *Lexicon) Version() string {
	return l.version
}

// Terms devuelve una copia de los términos de la clase.
func (l *Lexicon) Terms(class string) []string {
	return append([]string(nil), l.terms[class]...)
}

// Count devuelve cuántos términos distintos de la clase aparecen en lowerText.
func (l *Lexicon) Count(lowerText, class string) int {
	n := 0
	for _, term := range l.terms[class] {
		if strings.Contains(lowerText, term) {
			n++
		}
	}
	return n
}

// ContainsAny indica si algún término de la clase aparece en lowerText.
func (l *Lexicon) ContainsAny(lowerText, class string) bool {
	for _, term := range l.terms[class] {
		if strings.Contains(lowerText, term) {
			return true
		}
	}
	return false
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
