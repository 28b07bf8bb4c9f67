package errors

import "fmt"

type Kind string

const (
	InvalidConfig      Kind = "invalid_config"
	LookupFailure      Kind = "lookup_failure"
	EstimationFailure  Kind = "estimation_failure"
	AcquisitionFailure Kind = "acquisition_failure"
	BridgeFailure      Kind = "bridge_failure"
	Internal           Kind = "internal"
)

type AppError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

func UserMessage(err error) string {
	appErr, ok := err.(*AppError)
	if !ok {
		return err.Error()
	}
	switch appErr.Kind {
	case InvalidConfig:
		return fmt.Sprintf("Invalid configuration: %v", appErr.Err)
	case LookupFailure:
		return fmt.Sprintf("Lookup failed: %v", appErr.Err)
	case EstimationFailure:
		return fmt.Sprintf("Size estimation failed: %v", appErr.Err)
	case AcquisitionFailure:
		return fmt.Sprintf("Archive generation failed: %v", appErr.Err)
	case BridgeFailure:
		return fmt.Sprintf("Engine unreachable: %v", appErr.Err)
	default:
		return fmt.Sprintf("Unexpected error: %v", appErr.Err)
	}
}
