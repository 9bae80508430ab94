// Package types defines the Recipe entity, the Store interface that backends
// implement, configuration, and the standard error values for recipebox.
// See SPEC_FULL.md § Data Model and § Store Adapter.
package types
