package textnorm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/stoplist"
)

func TestTokenizerHyphensAndCase(t *testing.T) {
	toks := Tokenizer{}.Tokenize("BERT GPT-4 -- machine--learning, 5-point scale!")
	assert.Equal(t, []string{"bert", "gpt-4", "machine-learning", "5-point", "scale"}, toks)
}

func TestTokenizerEmpty(t *testing.T) {
	assert.Empty(t, Tokenizer{}.Tokenize(""))
	assert.Empty(t, Tokenizer{}.Tokenize("?!, ;"))
}

func TestRuleLemmatizer(t *testing.T) {
	l := NewRuleLemmatizer(nil)
	cases := map[string]string{
		"pressures": "pressure",
		"studies":   "study",
		"classes":   "class",
		"boxes":     "box",
		"matches":   "match",
		"ties":      "tie",
		"ratios":    "ratio",
		"diagnoses": "diagnosis",
		"mice":      "mouse",
		"data":      "datum",
		"status":    "status",
		"diabetes":  "diabetes",
		"genetics":  "genetics",
		"bus":       "bus",
		"covid19s":  "covid19s",
		"heart":     "heart",
	}
	for in, want := range cases {
		assert.Equal(t, want, l.Lemma(in), in)
	}
}

func TestLemmaIsFixedPoint(t *testing.T) {
	l := NewRuleLemmatizer(nil)
	for _, w := range []string{"glasses", "analyses", "bodies", "series", "hearts", "sss", "ssss", "children"} {
		once := l.Lemma(w)
		assert.Equal(t, once, l.Lemma(once), w)
	}
}

func TestNormalize(t *testing.T) {
	n := New(Options{})

	assert.Equal(t, "heart rate rest", n.Normalize("Heart rate at rest"))
	assert.Equal(t, "diastolic blood pressure", n.Normalize("Diastolic blood pressures"))
	assert.Equal(t, "patient diagnosis", n.Normalize("The patients' diagnoses"))
	assert.Equal(t, "evaluation", n.Normalize("Évaluation"))
	assert.Equal(t, "", n.Normalize("the of and"))
	assert.Equal(t, "", n.Normalize(""))
}

func TestNormalizeStripsMarkup(t *testing.T) {
	n := New(Options{})
	assert.Equal(t, "systolic pressure", n.Normalize("<b>Systolic</b> <i>pressure</i>"))
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New(Options{})
	inputs := []string{
		"Heart rate at rest",
		"Number of cigarettes smoked per day (past 30 days)",
		"Criteria for diagnoses of depressive disorders",
		"Glasses & classes, boxes--series",
		"<p>Médication   history</p>",
		"x y z 1 2 3",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), in)
	}
}

func TestNormalizeCustomStoplist(t *testing.T) {
	stops := stoplist.NewManager([]string{"rate"})
	n := New(Options{Stoplist: stops})
	assert.Equal(t, "heart at rest", n.Normalize("Heart rate at rest"))
}

func TestNormalizeConcurrent(t *testing.T) {
	n := New(Options{})
	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = n.Normalize("Systolic blood pressures")
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		require.Equal(t, "systolic blood pressure", r)
	}
}

func TestStripMarkupPlainText(t *testing.T) {
	assert.Equal(t, "a < b", StripMarkup("a < b"))
	assert.Equal(t, "plain", StripMarkup("plain"))
	assert.Equal(t, "Question Answer", CleanField("<b>Question</b><br/>  Answer"))
}
