package domain

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	KindUnknownInstrument FailureKind = "UnknownInstrument"
	KindNetworkFailure    FailureKind = "NetworkFailure"
	KindProviderError     FailureKind = "ProviderError"
	KindGenerationFailure FailureKind = "GenerationFailure"
	KindDeliveryFailure   FailureKind = "DeliveryFailure"
)

// Failure is the typed error every pipeline stage returns.
type Failure struct {
	Kind       FailureKind
	Instrument Instrument
	Err        error
}

func NewFailure(kind FailureKind, instrument Instrument, err error) *Failure {
	return &Failure{Kind: kind, Instrument: instrument, Err: err}
}

func (f *Failure) Error() string {
	prefix := string(f.Kind)
	if f.Instrument != "" {
		prefix = fmt.Sprintf("%s %s", f.Instrument, f.Kind)
	}
	if f.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the failure kind carried by err, or "" when err is not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func IsKind(err error, kind FailureKind) bool {
	return err != nil && KindOf(err) == kind
}
