// Package recipebox holds build metadata shared by the command and the web
// server.
package recipebox

// Version is the recipebox release.
const Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/recipebox"
