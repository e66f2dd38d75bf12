package categorize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/cdeharmony/pkg/harmony/cde"
	"github.com/cognicore/cdeharmony/pkg/harmony/internalerr"
)

// fixedStrategy returns canned candidates per description and can fail or
// panic on chosen descriptions.
type fixedStrategy struct {
	labels  map[string][]string
	failOn  string
	panicOn string
	delay   func(string) time.Duration
}

func (s *fixedStrategy) Name() string { return "fixed" }

func (s *fixedStrategy) CategorizeFields(_ context.Context, r cde.Record, fields []string) ([]string, error) {
	text := r.Text(fields, " ")
	if s.delay != nil {
		time.Sleep(s.delay(text))
	}
	if text == s.failOn {
		return nil, errors.New("service unavailable")
	}
	if text == s.panicOn {
		panic("model crashed")
	}
	return s.labels[text], nil
}

func records(descs ...string) []cde.Record {
	out := make([]cde.Record, len(descs))
	for i, d := range descs {
		out[i] = cde.NewRecord(map[string]string{"id": string(rune('1' + i)), "description": d})
	}
	return out
}

func TestCategorizeContinuesPastFailure(t *testing.T) {
	strategy := &fixedStrategy{
		labels: map[string][]string{
			"heart rate":     {"heart", "rate"},
			"blood pressure": {"blood", "pressure"},
		},
		failOn: "cardiac rate",
	}
	c, err := New(Options{Strategy: strategy, Workers: 2, Key: cde.FieldKey("id")})
	require.NoError(t, err)

	res, err := c.CategorizeCDE(context.Background(), records("heart rate", "cardiac rate", "blood pressure"))
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	labels, ok := res.Records[0].Categories()
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"heart", "rate"}, labels)

	_, ok = res.Records[1].Categories()
	assert.False(t, ok, "failed record keeps no categories field")

	labels, ok = res.Records[2].Categories()
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"blood", "pressure"}, labels)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, "2", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Error(), "service unavailable")
	assert.Equal(t, 2, res.Categorized())
}

func TestCategorizeRecoversPanics(t *testing.T) {
	strategy := &fixedStrategy{panicOn: "b"}
	c, err := New(Options{Strategy: strategy, Workers: 1})
	require.NoError(t, err)

	res, err := c.CategorizeCDE(context.Background(), records("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Contains(t, res.Failures[0].Err.Error(), "panicked")
}

func TestCategorizeDedupesAndDropsEmpty(t *testing.T) {
	strategy := &fixedStrategy{labels: map[string][]string{
		"x": {"Hearts", "heart", "the", "", "  ", "Heart rates", "heart rate"},
	}}
	c, err := New(Options{Strategy: strategy})
	require.NoError(t, err)

	res, err := c.CategorizeCDE(context.Background(), records("x"))
	require.NoError(t, err)
	labels, _ := res.Records[0].Categories()
	assert.Equal(t, []string{"heart", "heart rate"}, labels)
}

func TestCategorizeZeroCategoryRecords(t *testing.T) {
	c, err := New(Options{Strategy: Noop{}})
	require.NoError(t, err)

	res, err := c.CategorizeCDE(context.Background(), records("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.ZeroCategory)
	labels, ok := res.Records[0].Categories()
	assert.True(t, ok)
	assert.Empty(t, labels)
}

func TestCategorizeDoesNotMutateInput(t *testing.T) {
	strategy := &fixedStrategy{labels: map[string][]string{"a": {"alpha"}}}
	c, err := New(Options{Strategy: strategy})
	require.NoError(t, err)

	in := records("a")
	_, err = c.CategorizeCDE(context.Background(), in)
	require.NoError(t, err)
	_, ok := in[0].Categories()
	assert.False(t, ok)
}

func TestCategorizeParallelKeepsInputOrder(t *testing.T) {
	descs := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}
	labels := map[string][]string{}
	for _, d := range descs {
		labels[d] = []string{d}
	}
	strategy := &fixedStrategy{
		labels: labels,
		// longer texts return sooner
		delay: func(s string) time.Duration { return time.Duration(10-len(s)) * time.Millisecond },
	}
	c, err := New(Options{Strategy: strategy, Workers: 4})
	require.NoError(t, err)

	res, err := c.CategorizeCDE(context.Background(), records(descs...))
	require.NoError(t, err)
	for i, d := range descs {
		got, _ := res.Records[i].Categories()
		assert.Equal(t, []string{d}, got)
	}
}

func TestCategorizeCustomFieldName(t *testing.T) {
	strategy := &fixedStrategy{labels: map[string][]string{"a": {"alpha"}}}
	c, err := New(Options{Strategy: strategy, FieldName: "tags"})
	require.NoError(t, err)

	res, err := c.CategorizeCDE(context.Background(), records("a"))
	require.NoError(t, err)
	tags, ok := res.Records[0].List("tags")
	assert.True(t, ok)
	assert.Equal(t, []string{"alpha"}, tags)
}

func TestNewRequiresStrategy(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

// strategies below share the scenario: concurrent use from many workers
func TestStrategiesConcurrentUse(t *testing.T) {
	rake := NewRake(stops("of", "the"))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := cde.NewRecord(map[string]string{"description": "Rate of the heart"})
			got, err := rake.CategorizeFields(context.Background(), r, []string{"description"})
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()
}

type stopSet map[string]bool

func (s stopSet) IsStop(tok string) bool { return s[strings.ToLower(tok)] }

func stops(words ...string) stopSet {
	s := stopSet{}
	for _, w := range words {
		s[w] = true
	}
	return s
}
