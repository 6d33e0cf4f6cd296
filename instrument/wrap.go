package instrument

import "context"

// CountCalls returns op wrapped with a call counter. The counter at
// Keys(op.Identity()).Counter is incremented before op runs, whether or not
// op then succeeds.
func CountCalls[In, Out any](i *Instrumenter, op Operation[In, Out]) Operation[In, Out] {
	identity := op.Identity()
	keys := i.Keys(identity)

	return NewOperation(identity, func(ctx context.Context, in In) (Out, error) {
		if _, err := i.store.Incr(ctx, keys.Counter); err != nil {
			if ferr := i.failure(StageCount, identity, err); ferr != nil {
				var zero Out
				return zero, ferr
			}
		}
		return op.Call(ctx, in)
	})
}

// CallHistory returns op wrapped with input and output logging. The serialized
// input is appended before op runs and the serialized result after it returns
// successfully. A failing op leaves its input without a matching output, and
// its error is returned untouched.
//
// When the input append fails under PolicySwallow the output append is
// skipped too, so the call is missing from both logs and later calls stay
// paired. With PolicyFail, a failed output append returns op's result
// together with the *FailureError since op has already run.
func CallHistory[In, Out any](i *Instrumenter, op Operation[In, Out]) Operation[In, Out] {
	identity := op.Identity()
	keys := i.Keys(identity)

	return NewOperation(identity, func(ctx context.Context, in In) (Out, error) {
		input := i.serializer.SerializeArgs(in)
		logged := true
		if _, err := i.store.RPush(ctx, keys.Inputs, []byte(input)); err != nil {
			if ferr := i.failure(StageInput, identity, err); ferr != nil {
				var zero Out
				return zero, ferr
			}
			logged = false
		}

		out, err := op.Call(ctx, in)
		if err != nil || !logged {
			return out, err
		}

		output := i.serializer.SerializeResult(out)
		if _, err := i.store.RPush(ctx, keys.Outputs, []byte(output)); err != nil {
			if ferr := i.failure(StageOutput, identity, err); ferr != nil {
				return out, ferr
			}
		}
		return out, nil
	})
}

// Instrument registers op's identity and wraps it with both CountCalls and
// CallHistory, the counter running first.
func Instrument[In, Out any](i *Instrumenter, op Operation[In, Out]) (Operation[In, Out], error) {
	if err := i.Register(op.Identity()); err != nil {
		return Operation[In, Out]{}, err
	}
	return CountCalls(i, CallHistory(i, op)), nil
}
