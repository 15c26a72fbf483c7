// Package profiles registers the import profiles with the core registry.
// Import this package for its side effects to make the initiative,
// scholarship and group profiles available.
package profiles

// Each profile file uses init() to register its definition.
