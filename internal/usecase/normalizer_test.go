package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(DefaultUnitRules(), logger.NewNopLogger())
}

func TestNormalizer_Normalize(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name  string
		label string
		want  entity.ApartmentKey
	}{
		{"keyword suffix wins over number", "02 HL", "HL"},
		{"bare number", "2", "2"},
		{"leading zeros stripped", "02", "2"},
		{"all zeros", "000", "0"},
		{"compound kept as written", "01/02", "01/02"},
		{"compound with trailing text", "60/64 Beridze", "60/64"},
		{"number followed by owner name", "34 - ვანო გილგემიანი", "34"},
		{"spreadsheet decimal", "10.0", "10"},
		{"surrounding whitespace", "  7  ", "7"},
		{"georgian office keyword", "ოფისი 1", "ოფისი"},
		{"services company keyword", "თელასი", "თელასი"},
		{"alias spelling", "ლემონდუ office", "LMD"},
		{"second alias spelling", "ლემონდუუ", "LMD"},
		{"lowercase alias", "cmg 4", "CMG"},
		{"single letter alias", "m", "M"},
		{"keyword priority follows rule order", "HL LMD", "LMD"},
		{"keyword glued to number", "02HL", "HL"},
		{"keyword glued after number", "5CMG", "CMG"},
		{"georgian keyword glued to number", "ოფისი1", "ოფისი"},
		{"keyword after dash", "12-HL", "HL"},
		{"empty label", "", entity.UnknownApartment},
		{"whitespace label", "   ", entity.UnknownApartment},
		{"unparseable", "abc", entity.UnmatchedApartment},
		{"name containing keyword letters only inside words", "Tom Harris", entity.UnmatchedApartment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.label))
		})
	}
}

func TestNormalizer_Diagnostics(t *testing.T) {
	n := newTestNormalizer()

	key, diag := n.NormalizeWithDiagnostic("abc")
	assert.Equal(t, entity.UnmatchedApartment, key)
	require.NotNil(t, diag)
	assert.Equal(t, entity.StageNormalize, diag.Stage)
	assert.Equal(t, "abc", diag.Label)
	assert.NotEmpty(t, diag.Reason)

	key, diag = n.NormalizeWithDiagnostic("")
	assert.Equal(t, entity.UnknownApartment, key)
	assert.Nil(t, diag, "an absent label is not a parse failure")

	_, diag = n.NormalizeWithDiagnostic("5")
	assert.Nil(t, diag)
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := newTestNormalizer()

	labels := []string{"02 HL", "2", "007", "01/02", "ლემონდო", "cmg", "abc", "", "Mars", "მარსი"}
	for _, label := range labels {
		once := n.Normalize(label)
		assert.Equal(t, once, n.Normalize(string(once)), "label %q", label)
	}
}

func TestNumericKey(t *testing.T) {
	assert.Equal(t, entity.ApartmentKey("2"), NumericKey("02"))
	assert.Equal(t, entity.ApartmentKey("0"), NumericKey("00"))
	assert.Equal(t, entity.ApartmentKey("01/02"), NumericKey("01/02"))
	assert.Equal(t, entity.ApartmentKey("120"), NumericKey("120"))
}

func TestCleanUnitLabel(t *testing.T) {
	assert.Equal(t, "10", CleanUnitLabel("10.0"))
	assert.Equal(t, "10.5", CleanUnitLabel("10.5"))
	assert.Equal(t, "HL", CleanUnitLabel(" HL "))
	assert.Equal(t, "", CleanUnitLabel(""))
}

func TestLoadUnitRules(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file replaces defaults", func(t *testing.T) {
		path := filepath.Join(dir, "rules.yaml")
		content := "keywords:\n  - SHOP\n  - HL\naliases:\n  shop: SHOP\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rules, err := LoadUnitRules(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"SHOP", "HL"}, rules.Keywords)

		n := NewNormalizer(rules, logger.NewNopLogger())
		assert.Equal(t, entity.ApartmentKey("SHOP"), n.Normalize("shop 2"))
		assert.Equal(t, entity.ApartmentKey("3"), n.Normalize("03 LMD"), "LMD is not a keyword in this rule set")
	})

	t.Run("missing keywords", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("aliases: {}\n"), 0o600))

		_, err := LoadUnitRules(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadUnitRules(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
