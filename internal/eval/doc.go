/*
Package eval is the typed value layer of the interpreter: condition
evaluation, variable mutation operators, and text interpolation.

Everything here is pure over (project declarations, variable map) inputs.
Failure is never fatal: undefined variables make predicates false, bad
expressions are logged once and evaluate false, and invalid mutation
operators downgrade rather than error.
*/
package eval
