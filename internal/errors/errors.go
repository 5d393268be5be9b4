// Package errors re-exports github.com/cockroachdb/errors and declares the
// failure categories the pipeline recovers from.
//
// Categories are attached with Mark and tested with Is:
//
//	return errors.Mark(errors.Wrap(err, "reddit: list hot"), errors.ErrSource)
//
//	if errors.Is(err, errors.ErrSource) {
//	    // isolate the source, keep going
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

var (
	New       = crdb.New
	Newf      = crdb.Newf
	Wrap      = crdb.Wrap
	Wrapf     = crdb.Wrapf
	WithStack = crdb.WithStack
	WithHint  = crdb.WithHint
	WithHintf = crdb.WithHintf
)

var (
	Is              = crdb.Is
	IsAny           = crdb.IsAny
	As              = crdb.As
	Mark            = crdb.Mark
	Unwrap          = crdb.Unwrap
	UnwrapAll       = crdb.UnwrapAll
	CombineErrors   = crdb.CombineErrors
	GetAllHints     = crdb.GetAllHints
	FlattenHints    = crdb.FlattenHints
	WithSecondError = crdb.WithSecondaryError
)

// Failure categories. Each is recovered at a different scope: a record,
// a source, a lead, or the run.
var (
	ErrValidation     = New("validation error")
	ErrSource         = New("source error")
	ErrClassification = New("classification error")
	ErrConfiguration  = New("configuration error")

	// linkedin_public refusals
	ErrBlocked    = New("request blocked by upstream")
	ErrDailyLimit = New("daily request limit reached")
)
