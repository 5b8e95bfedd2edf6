// Package errors classifies the failures of a conversion.
//
// Every error that leaves a component is wrapped with [Wrap] or one of its
// classified variants, giving messages of the form
//
//	component.method: action failed: cause
//
// and a class callers can branch on:
//
//   - Transient: the run store could not be read right now; the caller may retry the whole run.
//   - Invalid: the input itself is malformed, such as a fixture that fails schema validation.
//   - Fatal: the run cannot be converted as given, such as a missing uid or a dangling link.
//
// Classification works through wrapping chains, so errors.Is and errors.As
// from the standard library keep working on classified errors.
package errors
