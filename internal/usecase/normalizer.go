package usecase

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/pkg/logger"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/unicode/norm"
)

var unitNumberRe = regexp.MustCompile(`^(\d+[/\d]*)`)

// UnitRules lists the named units recognised in labels. Keywords are checked
// in order and returned verbatim; aliases map alternate spellings to one
// keyword.
type UnitRules struct {
	Keywords []string          `yaml:"keywords"`
	Aliases  map[string]string `yaml:"aliases"`
}

// DefaultUnitRules returns the built-in named units: offices, building
// sections and the services company.
func DefaultUnitRules() UnitRules {
	return UnitRules{
		Keywords: []string{"LMD", "CMG", "HL", "თელასი", "M", "Mars", "მარსი", "ოფისი"},
		Aliases: map[string]string{
			"cmg":      "CMG",
			"m":        "M",
			"ლემონდო":  "LMD",
			"ლემონდუ":  "LMD",
			"ლემონდუუ": "LMD",
		},
	}
}

// LoadUnitRules reads unit rules from a YAML file
func LoadUnitRules(path string) (UnitRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UnitRules{}, fmt.Errorf("failed to read unit rules: %w", err)
	}

	var rules UnitRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return UnitRules{}, fmt.Errorf("failed to parse unit rules %s: %w", path, err)
	}
	if len(rules.Keywords) == 0 {
		return UnitRules{}, fmt.Errorf("unit rules %s define no keywords", path)
	}
	return rules, nil
}

// Normalizer turns free-text unit labels into apartment keys
type Normalizer struct {
	keywords []string
	aliases  map[string]entity.ApartmentKey
	logger   logger.Logger
}

// NewNormalizer creates a normalizer for the given rules
func NewNormalizer(rules UnitRules, logger logger.Logger) *Normalizer {
	n := &Normalizer{
		aliases: make(map[string]entity.ApartmentKey, len(rules.Aliases)),
		logger:  logger,
	}
	for _, kw := range rules.Keywords {
		n.keywords = append(n.keywords, norm.NFC.String(kw))
	}
	for alias, canonical := range rules.Aliases {
		n.aliases[norm.NFC.String(alias)] = entity.ApartmentKey(norm.NFC.String(canonical))
	}
	return n
}

// Normalize returns the apartment key of a label. Misses are logged.
func (n *Normalizer) Normalize(label string) entity.ApartmentKey {
	key, diag := n.NormalizeWithDiagnostic(label)
	if diag != nil {
		n.logger.Warn("Label did not match any pattern", "label", diag.Label)
	}
	return key
}

// NormalizeWithDiagnostic returns the apartment key of a label together with
// a diagnostic when the label was supplied but could not be parsed.
//
// Order: empty label, keyword token, alias token, leading number or
// slash-compound, unmatched.
func (n *Normalizer) NormalizeWithDiagnostic(label string) (entity.ApartmentKey, *entity.Diagnostic) {
	s := strings.TrimSpace(norm.NFC.String(label))
	if s == "" {
		return entity.UnknownApartment, nil
	}
	if s == string(entity.UnknownApartment) || s == string(entity.UnmatchedApartment) {
		return entity.ApartmentKey(s), nil
	}

	tokens := tokenize(s)
	for _, kw := range n.keywords {
		for _, tok := range tokens {
			if tok == kw {
				return entity.ApartmentKey(kw), nil
			}
		}
	}
	for _, tok := range tokens {
		if canonical, ok := n.aliases[tok]; ok {
			return canonical, nil
		}
	}

	if m := unitNumberRe.FindStringSubmatch(s); m != nil {
		return NumericKey(m[1]), nil
	}

	return entity.UnmatchedApartment, &entity.Diagnostic{
		Stage:  entity.StageNormalize,
		Label:  label,
		Reason: "label matched no unit keyword or number pattern",
	}
}

// NumericKey canonicalises a matched unit number. Bare digit runs lose their
// leading zeros; compounds containing '/' are kept as written.
func NumericKey(token string) entity.ApartmentKey {
	if strings.Contains(token, "/") {
		return entity.ApartmentKey(token)
	}
	trimmed := strings.TrimLeft(token, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return entity.ApartmentKey(trimmed)
}

// CleanUnitLabel undoes spreadsheet number formatting ("10.0" -> "10")
func CleanUnitLabel(raw string) string {
	s := strings.TrimSpace(raw)
	return strings.TrimSuffix(s, ".0")
}

const (
	runeSeparator = iota
	runeLetter
	runeDigit
)

func classify(r rune) int {
	switch {
	case unicode.IsLetter(r), unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r):
		return runeLetter
	case unicode.IsDigit(r), r == '/':
		return runeDigit
	default:
		return runeSeparator
	}
}

// tokenize splits a label on every rune that is not a letter, digit or '/',
// and where a letter run meets a digit run ("02HL" -> "02", "HL")
func tokenize(s string) []string {
	var tokens []string
	start, prev := -1, runeSeparator
	for i, r := range s {
		class := classify(r)
		if start >= 0 && class != prev {
			tokens = append(tokens, s[start:i])
			start = -1
		}
		if class != runeSeparator && start < 0 {
			start = i
		}
		prev = class
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
