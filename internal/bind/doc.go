// Package bind reconciles caller-supplied data and dimension values against
// an operator's declared parameter list at call time.
//
// Binding is all-or-nothing: every validation failure is reported before
// the native routine is invoked, with the parameter or dimension that
// caused it. Nothing is silently coerced.
package bind
