package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/roach88/primewheel/internal/generator"
	"github.com/roach88/primewheel/internal/output"
	"github.com/roach88/primewheel/internal/wheel"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Errors lists each failed expectation.
	Errors []string

	// Primes is the generated sequence.
	Primes []uint64

	// Output is the formatted rows, as the output layer writes them.
	Output []byte
}

func (r *Result) addError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// recorder wraps a Source and remembers what it yielded.
type recorder struct {
	src    generator.Source
	values []uint64
}

func (r *recorder) Next() (uint64, bool) {
	v, ok := r.src.Next()
	if ok {
		r.values = append(r.values, v)
	}
	return v, ok
}

// Run executes a scenario and returns its result. The error return is for
// failures outside the scenario's control (output errors); expectation
// failures are reported in Result.Errors.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	result := &Result{Pass: true}

	rules, err := s.RuleSet()
	if err == nil {
		_, err = wheel.Build(rules)
	}
	if s.ExpectError != "" {
		checkExpectedError(result, s.ExpectError, err)
		return result, nil
	}
	if err != nil {
		result.addError("unexpected error: %v", err)
		return result, nil
	}

	var src generator.Source
	if s.Shards > 1 {
		p, err := generator.NewParallel(ctx, rules, s.Start, s.Shards)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		src = p
	} else {
		stream, err := generator.New(rules, s.Start)
		if err != nil {
			return nil, err
		}
		src = stream.Bind(ctx)
	}

	rec := &recorder{src: src}
	var buf bytes.Buffer
	res, err := output.WriteRows(&buf, rec, output.Options{Count: s.Count, PerLine: s.PerLine})
	if err != nil {
		return nil, fmt.Errorf("format output: %w", err)
	}
	if err := generator.SourceErr(src); err != nil {
		return nil, fmt.Errorf("stream stopped: %w", err)
	}

	result.Primes = rec.values
	result.Output = buf.Bytes()

	if res.Emitted != s.Count {
		result.addError("generated %d primes, want %d", res.Emitted, s.Count)
	}
	for i, want := range s.Expect {
		if i >= len(result.Primes) {
			result.addError("expect[%d]: sequence ended, want %d", i, want)
			break
		}
		if got := result.Primes[i]; got != want {
			result.addError("expect[%d]: got %d, want %d", i, got, want)
		}
	}
	return result, nil
}

func checkExpectedError(result *Result, code string, err error) {
	if err == nil {
		result.addError("expected error %s, got none", code)
		return
	}
	var re *wheel.RuleError
	if !errors.As(err, &re) {
		result.addError("expected error %s, got %v", code, err)
		return
	}
	if string(re.Code) != code {
		result.addError("expected error %s, got %s", code, re.Code)
	}
}
