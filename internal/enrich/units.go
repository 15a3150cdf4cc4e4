package enrich

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
)

var defaultUnits = map[string]string{
	"t": "Tonne", "t.": "Tonne", "T": "Tonne",
	"kg": "Kilogramm",
	"St": "Stück", "St.": "Stück", "st": "Stück",
	"m": "Meter", "m.": "Meter",
	"l": "Liter", "L": "Liter",
	"psch": "Pauschale", "pauschal": "Pauschale",
}

// DefaultUnitMap returns a copy of the built-in unit mapping.
func DefaultUnitMap() map[string]string {
	out := make(map[string]string, len(defaultUnits))
	for k, v := range defaultUnits {
		out[k] = v
	}
	return out
}

// UnknownUnit is one line of the unknown-units report.
type UnknownUnit struct {
	Raw   string
	Count int
}

// UnitMapper normalizes raw unit strings and remembers the ones it could not map.
type UnitMapper struct {
	exact   map[string]string
	folded  map[string]string
	unknown map[string]int
}

// NewUnitMapper overlays overrides on the built-in mapping.
func NewUnitMapper(overrides map[string]string) *UnitMapper {
	m := &UnitMapper{
		exact:   map[string]string{},
		folded:  map[string]string{},
		unknown: map[string]int{},
	}
	for k, v := range defaultUnits {
		m.add(k, v)
	}
	for k, v := range overrides {
		m.add(k, v)
	}
	return m
}

func (m *UnitMapper) add(raw, normalized string) {
	raw, normalized = strings.TrimSpace(raw), strings.TrimSpace(normalized)
	if raw == "" || normalized == "" {
		return
	}
	m.exact[raw] = normalized
	m.folded[foldUnit(raw)] = normalized
}

// Normalize maps raw to its canonical unit. Lookup goes exact, then without dots, then
// case-insensitively ignoring whitespace. Unknown units come back without dots and
// with inner whitespace collapsed, and are counted for the report. Empty input stays
// empty.
func (m *UnitMapper) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if v, ok := m.exact[trimmed]; ok {
		return v
	}
	cleaned := cleanUnit(trimmed)
	if v, ok := m.exact[cleaned]; ok {
		return v
	}
	if v, ok := m.folded[foldUnit(cleaned)]; ok {
		return v
	}
	m.unknown[cleaned]++
	return cleaned
}

// Unknown lists the unmapped units seen so far, each once, sorted by name.
func (m *UnitMapper) Unknown() []UnknownUnit {
	out := make([]UnknownUnit, 0, len(m.unknown))
	for raw, n := range m.unknown {
		out = append(out, UnknownUnit{Raw: raw, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Raw < out[j].Raw })
	return out
}

func cleanUnit(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(s), " ")
}

// foldUnit is the case- and whitespace-insensitive lookup key.
func foldUnit(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, ".", "")), ""))
}

// TableIO is the spreadsheet access the enricher needs.
type TableIO interface {
	Read(path string) (export.Table, error)
	Write(path, sheet string, columns []string, rows [][]any) error
}

type yamlMapping struct {
	Units []entity.UnitMappingEntry `yaml:"units"`
}

// LoadUnitMapping reads the user mapping file. A missing file is created empty and
// reported through created. Paths ending in .yaml or .yml are read as YAML, anything
// else as a workbook with Einheit_roh/Einheit_normiert columns.
func LoadUnitMapping(path string, io TableIO, logger *slog.Logger) (mapping map[string]string, created bool, err error) {
	if path == "" {
		return nil, false, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	ext := strings.ToLower(filepath.Ext(path))
	isYAML := ext == ".yaml" || ext == ".yml"

	if !export.Exists(path) {
		if isYAML {
			b, mErr := yaml.Marshal(yamlMapping{Units: []entity.UnitMappingEntry{}})
			if mErr != nil {
				return nil, false, mErr
			}
			if wErr := os.WriteFile(path, b, 0o644); wErr != nil {
				return nil, false, fmt.Errorf("create unit mapping: %w", wErr)
			}
		} else if wErr := io.Write(path, "Mapping", entity.UnitMappingColumns, nil); wErr != nil {
			return nil, false, fmt.Errorf("create unit mapping: %w", wErr)
		}
		logger.Info("enrich.units.mapping_created", "path", path)
		return map[string]string{}, true, nil
	}

	mapping = map[string]string{}
	if isYAML {
		b, rErr := os.ReadFile(path)
		if rErr != nil {
			return nil, false, fmt.Errorf("read unit mapping: %w", rErr)
		}
		var doc yamlMapping
		if uErr := yaml.Unmarshal(b, &doc); uErr != nil {
			return nil, false, fmt.Errorf("parse unit mapping: %w", uErr)
		}
		for _, e := range doc.Units {
			addMapping(mapping, e.Raw, e.Normalized)
		}
		return mapping, false, nil
	}

	tbl, rErr := io.Read(path)
	if rErr != nil {
		return nil, false, fmt.Errorf("read unit mapping: %w", rErr)
	}
	if len(tbl.Columns) > 0 && (!hasColumn(tbl.Columns, entity.ColUnitRaw) || !hasColumn(tbl.Columns, entity.ColUnitNormalized)) {
		return nil, false, errors.New("unit mapping lacks columns " + entity.ColUnitRaw + "/" + entity.ColUnitNormalized)
	}
	for _, rec := range tbl.Records {
		addMapping(mapping, rec[entity.ColUnitRaw], rec[entity.ColUnitNormalized])
	}
	return mapping, false, nil
}

func addMapping(m map[string]string, raw, normalized string) {
	raw, normalized = strings.TrimSpace(raw), strings.TrimSpace(normalized)
	if raw != "" && normalized != "" {
		m[raw] = normalized
	}
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
