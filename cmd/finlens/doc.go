// Command finlens is the financial document analysis CLI: it runs the
// background daemon, submits documents, and inspects job state.
package main
