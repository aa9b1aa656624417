package interfaces

import "errors"

// EngineCallError wraps a failure reported by the messaging engine. The
// engine's message is kept verbatim; Op and ClientAddress give context.
type EngineCallError struct {
	Op            string
	ClientAddress string
	Err           error
}

func (e *EngineCallError) Error() string {
	return e.Err.Error()
}

func (e *EngineCallError) Unwrap() error {
	return e.Err
}

// WrapEngineError wraps err as an EngineCallError. It returns nil for a nil
// error and leaves an existing EngineCallError untouched.
func WrapEngineError(op, clientAddress string, err error) error {
	if err == nil {
		return nil
	}
	var engineErr *EngineCallError
	if errors.As(err, &engineErr) {
		return err
	}
	return &EngineCallError{Op: op, ClientAddress: clientAddress, Err: err}
}
