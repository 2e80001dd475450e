package intake

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Strategy selects how a document type is extracted.
type Strategy string

const (
	// StrategyVisionDirect sends the session's images straight to the
	// vision extraction endpoint, skipping OCR. It tolerates skewed,
	// low-light, hand-held captures and is the default.
	StrategyVisionDirect Strategy = "vision_direct"
	// StrategyLegacyOCR runs OCR first and then a text-only extraction with
	// a fixed, previously tuned parameter profile. Reserved for the one
	// document type where that profile reaches full field coverage.
	StrategyLegacyOCR Strategy = "legacy_ocr_then_extract"
)

// Profile is the extraction profile of one document type. Temperature and
// MaxTokens only apply to the legacy strategy; they are preserved constants
// from the tuned configuration, not values to re-derive.
type Profile struct {
	Strategy    Strategy `yaml:"strategy"`
	Temperature float64  `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
}

// StrategyTable resolves a document type to its extraction profile once,
// instead of scattering string comparisons across call sites.
type StrategyTable struct {
	Default       Profile            `yaml:"default"`
	DocumentTypes map[string]Profile `yaml:"document_types"`
}

//go:embed profiles.yaml
var defaultProfiles []byte

// DefaultStrategyTable parses the embedded profile table.
func DefaultStrategyTable() (*StrategyTable, error) {
	return parseStrategyTable(defaultProfiles)
}

// LoadStrategyTable reads a profile table from a YAML file, so new document
// types can be routed without a code change.
func LoadStrategyTable(path string) (*StrategyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: read strategy table %s", path)
	}
	return parseStrategyTable(data)
}

func parseStrategyTable(data []byte) (*StrategyTable, error) {
	var t StrategyTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "intake: parse strategy table")
	}
	if t.Default.Strategy == "" {
		t.Default.Strategy = StrategyVisionDirect
	}
	return &t, nil
}

// Resolve returns the profile for a document type, falling back to the
// table's default.
func (t *StrategyTable) Resolve(documentType string) Profile {
	if p, ok := t.DocumentTypes[documentType]; ok {
		if p.Strategy == "" {
			p.Strategy = t.Default.Strategy
		}
		return p
	}
	return t.Default
}
