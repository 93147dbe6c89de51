package interpret

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactloop/leadscout/internal/config"
	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/internal/resilience"
)

type fakeGen struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	i := len(f.prompts) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func recordSleeps(delays *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestInterpretParsesModelOutput(t *testing.T) {
	gen := &fakeGen{responses: []string{`{"city":"Utrecht","industry":"bakkerij","area":"centrum"}`}}
	i := New(gen, config.InterpreterConfig{})

	q := i.Interpret(context.Background(), "bakkerijen in het centrum van Utrecht")

	assert.Equal(t, "Utrecht", q.City)
	assert.Equal(t, "bakkerij", q.Industry)
	assert.Equal(t, "centrum", q.Area)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Ontleed de volgende tekst")
	assert.Contains(t, gen.prompts[0], "bakkerijen in het centrum van Utrecht")
}

func TestInterpretStripsMarkdownFences(t *testing.T) {
	gen := &fakeGen{responses: []string{"```json\n{\"city\":\"Breda\",\"industry\":\"horeca\",\"area\":\"\"}\n```"}}
	i := New(gen, config.InterpreterConfig{})

	q := i.Interpret(context.Background(), "horeca in Breda")

	assert.Equal(t, "Breda", q.City)
	assert.Equal(t, "horeca", q.Industry)
	assert.Equal(t, model.Unknown, q.Area)
}

func TestInterpretMissingFieldsBecomeUnknown(t *testing.T) {
	gen := &fakeGen{responses: []string{`{"city":"Zwolle"}`}}
	i := New(gen, config.InterpreterConfig{})

	q := i.Interpret(context.Background(), "iets in Zwolle")

	assert.Equal(t, "Zwolle", q.City)
	assert.Equal(t, model.Unknown, q.Industry)
	assert.Equal(t, model.Unknown, q.Area)
}

func TestInterpretMalformedOutputDegrades(t *testing.T) {
	gen := &fakeGen{responses: []string{"sorry, daar kan ik niets mee"}}
	i := New(gen, config.InterpreterConfig{})

	q := i.Interpret(context.Background(), "???")
	assert.Equal(t, model.UnknownQuery(), q)
}

func TestInterpretRetriesWithFixedDelay(t *testing.T) {
	gen := &fakeGen{
		responses: []string{"", "", `{"city":"Gouda","industry":"kaas","area":"markt"}`},
		errs:      []error{eris.New("unavailable"), eris.New("unavailable"), nil},
	}
	var delays []time.Duration
	i := New(gen, config.InterpreterConfig{MaxAttempts: 3, BackoffSecs: 5}, recordSleeps(&delays))

	q := i.Interpret(context.Background(), "kaaswinkels bij de markt in Gouda")

	assert.Equal(t, "Gouda", q.City)
	require.Len(t, gen.prompts, 3)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, delays)
}

func TestInterpretHonorsRetryAfter(t *testing.T) {
	gen := &fakeGen{
		responses: []string{"", `{"city":"Delft","industry":"it","area":""}`},
		errs:      []error{resilience.NewRateLimitError(eris.New("rate limited"), 9*time.Second), nil},
	}
	var delays []time.Duration
	i := New(gen, config.InterpreterConfig{MaxAttempts: 3, BackoffSecs: 5}, recordSleeps(&delays))

	q := i.Interpret(context.Background(), "it-bedrijven in Delft")

	assert.Equal(t, "Delft", q.City)
	require.Len(t, delays, 1)
	// Provider wait is added on top of the fixed delay.
	assert.Equal(t, 14*time.Second, delays[0])
}

func TestInterpretExhaustedRetriesDegrade(t *testing.T) {
	boom := eris.New("hard down")
	gen := &fakeGen{
		responses: []string{"", "", ""},
		errs:      []error{boom, boom, boom},
	}
	var delays []time.Duration
	i := New(gen, config.InterpreterConfig{MaxAttempts: 3, BackoffSecs: 5}, recordSleeps(&delays))

	q := i.Interpret(context.Background(), "wat dan ook")

	assert.Equal(t, model.UnknownQuery(), q)
	assert.Len(t, gen.prompts, 3)
	assert.Len(t, delays, 2)
}
