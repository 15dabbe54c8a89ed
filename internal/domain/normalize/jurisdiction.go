package normalize

import (
	"strings"

	"github.com/openbench/jurisync/internal/domain/model"
)

// jurisdictionAliases maps upstream spellings and single-letter source codes
// to the canonical taxonomy. Keys are compared lowercase after trimming.
var jurisdictionAliases = map[string]model.Jurisdiction{
	"f":              model.JurisdictionFederal,
	"fd":             model.JurisdictionFederal,
	"fb":             model.JurisdictionFederal,
	"fs":             model.JurisdictionFederal,
	"federal":        model.JurisdictionFederal,
	"us":             model.JurisdictionFederal,
	"u.s.":           model.JurisdictionFederal,
	"s":              model.JurisdictionState,
	"sa":             model.JurisdictionState,
	"st":             model.JurisdictionState,
	"state":          model.JurisdictionState,
	"c":              model.JurisdictionCounty,
	"county":         model.JurisdictionCounty,
	"m":              model.JurisdictionMunicipal,
	"municipal":      model.JurisdictionMunicipal,
	"city":           model.JurisdictionMunicipal,
	"tr":             model.JurisdictionTribal,
	"tribal":         model.JurisdictionTribal,
	"t":              model.JurisdictionTerritorial,
	"territory":      model.JurisdictionTerritorial,
	"territorial":    model.JurisdictionTerritorial,
	"ma":             model.JurisdictionMilitary,
	"military":       model.JurisdictionMilitary,
	"i":              model.JurisdictionInternational,
	"international":  model.JurisdictionInternational,
	"supranational":  model.JurisdictionInternational,
	"multi-national": model.JurisdictionInternational,
}

// jurisdictionHints resolve free-text values the alias table misses, checked
// in order so the most specific hint wins.
var jurisdictionHints = []struct {
	substring string
	canonical model.Jurisdiction
}{
	{"tribal", model.JurisdictionTribal},
	{"territor", model.JurisdictionTerritorial},
	{"military", model.JurisdictionMilitary},
	{"court-martial", model.JurisdictionMilitary},
	{"internation", model.JurisdictionInternational},
	{"municipal", model.JurisdictionMunicipal},
	{"county", model.JurisdictionCounty},
	{"parish", model.JurisdictionCounty},
	{"federal", model.JurisdictionFederal},
	{"united states", model.JurisdictionFederal},
	{"u.s.", model.JurisdictionFederal},
	{"district court", model.JurisdictionFederal},
	{"circuit", model.JurisdictionFederal},
	{"bankruptcy", model.JurisdictionFederal},
	{"state", model.JurisdictionState},
	{"superior", model.JurisdictionState},
	{"appellate", model.JurisdictionState},
	{"supreme", model.JurisdictionState},
}

// Jurisdiction maps an upstream jurisdiction string to the canonical
// taxonomy. Exact alias hits carry full confidence; substring hints are
// weaker; anything unresolvable returns ok=false.
func Jurisdiction(raw string) (Suggestion, bool) {
	key := strings.ToLower(collapseSpaces(raw))
	if key == "" {
		return Suggestion{}, false
	}

	if canonical, ok := jurisdictionAliases[key]; ok {
		confidence := 1.0
		if key != string(canonical) {
			confidence = 0.95
		}
		return Suggestion{Value: string(canonical), Confidence: confidence}, true
	}

	for _, hint := range jurisdictionHints {
		if strings.Contains(key, hint.substring) {
			return Suggestion{Value: string(hint.canonical), Confidence: 0.7}, true
		}
	}
	return Suggestion{}, false
}
