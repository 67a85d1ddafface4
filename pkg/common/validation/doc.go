// Package validation holds the argument checks shared by tabflow
// constructors and the config loader.
//
// Every check returns a *errors.ConfigurationError naming the module and
// field at fault, so callers can join several of them and report all
// problems with a definition at once.
package validation
