// Package audit defines the audit event model and the asynchronous
// dispatcher that forwards events from the engine to a caller-supplied
// sink. Events never carry raw credentials, codes, or tokens.
package audit
