// Package instrument wraps arbitrary operations with a store resident call
// counter and an append-only call history, and replays that history.
//
// # Overview
//
// An Operation[In, Out] pairs a function with an identity. The identity is the
// key namespace for three store keys:
//
//	<namespace:><identity>           call counter
//	<namespace:><identity>:inputs    serialized arguments, one entry per call
//	<namespace:><identity>:outputs   serialized results, one entry per success
//
// CountCalls and CallHistory return a new Operation with the same identity and
// call contract, so wrappers compose the way decorators would:
//
//	in, _ := instrument.New(store, instrument.DefaultConfig())
//	op := instrument.NewOperation("Greeter.Hello", hello)
//	op, err := instrument.Instrument(in, op) // CountCalls(CallHistory(op))
//	out, err := op.Call(ctx, "world")
//
//	_ = in.Replay(ctx, op, os.Stdout)
//	// Greeter.Hello was called 1 times:
//	// Greeter.Hello(*("world")) -> hello world
//
// # Failure policy
//
// Counting and logging are telemetry. With PolicySwallow (default) a store
// failure is logged at warning level, counted in
// callhistory_instrumentation_failures_total and the wrapped operation still
// runs. With PolicyFail the wrapper returns a *FailureError instead. Errors
// returned by the wrapped operation itself are always passed through unchanged.
//
// # Ordering
//
// The store appends atomically per key but the input and output logs are two
// keys. Concurrent calls of the same identity can therefore record their
// outputs in a different order than their inputs, and Replay will pair them
// positionally. Entry i of the output log only matches entry i of the input log
// when calls do not overlap.
//
// Replay prints min(len(inputs), len(outputs)) pairs. Trace exposes the
// leftovers of the longer log.
package instrument
