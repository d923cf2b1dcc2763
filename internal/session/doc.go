// Package session holds the dashboard's application state.
//
// State is an immutable value; every user action is a pure transition that
// returns the next State. Store keeps the current State for the server
// process and applies transitions atomically.
package session
