// Package core defines the shared language of the sceneforge editor.
//
// This package contains:
//   - Diagnostic records produced by project checks
//   - The error taxonomy shared by the session, the workers and the orchestrator
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
