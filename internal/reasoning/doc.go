// Package reasoning provides the client for the external reasoning engine the
// analysis stages consult. The engine is an explicit injected dependency:
// stage constructors refuse a nil engine, so "reasoning disabled" is a
// configuration decision made at startup rather than a runtime exception path.
package reasoning
