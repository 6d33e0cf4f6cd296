package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Call is one paired entry of the input and output logs.
type Call struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// Trace is the recorded history of one operation identity.
type Trace struct {
	Identity string `json:"identity" yaml:"identity"`
	Count    int64  `json:"count" yaml:"count"`
	Calls    []Call `json:"calls" yaml:"calls"`
	// UnmatchedInputs holds inputs past the end of the output log, usually
	// calls that failed or are still running.
	UnmatchedInputs []string `json:"unmatched_inputs,omitempty" yaml:"unmatched_inputs,omitempty"`
	// UnmatchedOutputs holds outputs past the end of the input log. CallHistory
	// never writes them, so they mean the logs were changed from outside.
	UnmatchedOutputs []string `json:"unmatched_outputs,omitempty" yaml:"unmatched_outputs,omitempty"`
}

// Paired reports whether both logs have the same length.
func (t Trace) Paired() bool {
	return len(t.UnmatchedInputs) == 0 && len(t.UnmatchedOutputs) == 0
}

// Trace reads the counter and both logs for op. A missing counter reads as 0.
func (i *Instrumenter) Trace(ctx context.Context, op Named) (Trace, error) {
	identity := op.Identity()
	if identity == "" {
		return Trace{}, ErrInvalidIdentity
	}
	keys := i.Keys(identity)

	count, err := i.readCount(ctx, keys.Counter)
	if err != nil {
		return Trace{}, err
	}

	inputs, err := i.store.LRange(ctx, keys.Inputs)
	if err != nil {
		return Trace{}, err
	}
	outputs, err := i.store.LRange(ctx, keys.Outputs)
	if err != nil {
		return Trace{}, err
	}

	paired := min(len(inputs), len(outputs))
	trace := Trace{
		Identity: identity,
		Count:    count,
		Calls:    make([]Call, paired),
	}
	for n := 0; n < paired; n++ {
		trace.Calls[n] = Call{Input: string(inputs[n]), Output: string(outputs[n])}
	}
	for _, in := range inputs[paired:] {
		trace.UnmatchedInputs = append(trace.UnmatchedInputs, string(in))
	}
	for _, out := range outputs[paired:] {
		trace.UnmatchedOutputs = append(trace.UnmatchedOutputs, string(out))
	}
	return trace, nil
}

// Replay writes the human readable history of op to w:
//
//	Cache.Store was called 2 times:
//	Cache.Store(*("foo")) -> 5b1c...
//	Cache.Store(*(42)) -> 9e0a...
//
// Only paired entries are printed. Unpaired trailing entries are logged as a
// warning and are available through Trace.
func (i *Instrumenter) Replay(ctx context.Context, op Named, w io.Writer) error {
	trace, err := i.Trace(ctx, op)
	if err != nil {
		return err
	}
	if !trace.Paired() {
		i.logger.Warn("call history logs have different lengths",
			"identity", trace.Identity,
			"unmatched_inputs", len(trace.UnmatchedInputs),
			"unmatched_outputs", len(trace.UnmatchedOutputs),
		)
	}
	return trace.WriteText(w)
}

// WriteText renders the trace in the replay format.
func (t Trace) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s was called %d times:\n", t.Identity, t.Count); err != nil {
		return err
	}
	for _, call := range t.Calls {
		if _, err := fmt.Fprintf(w, "%s(*%s) -> %s\n", t.Identity, call.Input, call.Output); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON renders the trace as indented JSON.
func (t Trace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteYAML renders the trace as YAML.
func (t Trace) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return err
	}
	return enc.Close()
}

func (i *Instrumenter) readCount(ctx context.Context, key string) (int64, error) {
	raw, found, err := i.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	count, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "call counter "+key+" is not an integer").
			WithTextCode(TextCodeCorruptCounter)
	}
	return count, nil
}
