package lexicon

// english lists irregular plurals common in clinical and survey vocabulary,
// plus singular words ending in "s" that suffix rules would damage.
var english = map[string][]string{
	"analysis":     {"analyses"},
	"appendix":     {"appendices"},
	"axis":         {"axes"},
	"bacterium":    {"bacteria"},
	"child":        {"children"},
	"criterion":    {"criteria"},
	"crisis":       {"crises"},
	"datum":        {"data"},
	"diabetes":     nil,
	"diagnosis":    {"diagnoses"},
	"foot":         {"feet"},
	"goose":        {"geese"},
	"herpes":       nil,
	"hypothesis":   {"hypotheses"},
	"index":        {"indices"},
	"lens":         nil,
	"man":          {"men"},
	"matrix":       {"matrices"},
	"measles":      nil,
	"medium":       {"media"},
	"mouse":        {"mice"},
	"mumps":        nil,
	"news":         nil,
	"person":       {"people"},
	"phenomenon":   {"phenomena"},
	"prognosis":    {"prognoses"},
	"rabies":       nil,
	"series":       nil,
	"species":      nil,
	"stimulus":     {"stimuli"},
	"thesis":       {"theses"},
	"tooth":        {"teeth"},
	"vertebra":     {"vertebrae"},
	"woman":        {"women"},
	"whereas":      nil,
	"always":       nil,
	"perhaps":      nil,
	"sometimes":    nil,
	"afterwards":   nil,
	"nevertheless": nil,
}

// NewEnglish returns a lexicon preloaded with English irregular forms.
func NewEnglish() *Lexicon {
	lex := New()
	for canonical, variants := range english {
		lex.Add(canonical, variants...)
	}
	return lex
}
