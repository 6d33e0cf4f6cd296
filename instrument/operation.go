package instrument

import "context"

// Func is the call contract shared by raw and instrumented operations.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Named is anything that carries an operation identity. Replay takes a Named
// so it inspects the history of a specific operation value.
type Named interface {
	Identity() string
}

// Operation pairs a Func with the identity under which its calls are recorded.
// Wrapping an Operation returns a new Operation with the same identity and the
// same call contract.
type Operation[In, Out any] struct {
	identity string
	fn       Func[In, Out]
}

// NewOperation describes fn under an explicit identity.
func NewOperation[In, Out any](identity string, fn Func[In, Out]) Operation[In, Out] {
	return Operation[In, Out]{identity: identity, fn: fn}
}

// OperationOf describes fn under the identity derived by IdentityOf.
func OperationOf[In, Out any](fn Func[In, Out]) Operation[In, Out] {
	return NewOperation(IdentityOf(fn), fn)
}

// Identity returns the key namespace of the operation.
func (o Operation[In, Out]) Identity() string {
	return o.identity
}

// Call invokes the operation.
func (o Operation[In, Out]) Call(ctx context.Context, in In) (Out, error) {
	if o.fn == nil {
		var zero Out
		return zero, ErrNilOperation
	}
	return o.fn(ctx, in)
}
