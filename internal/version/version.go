// internal/version/version.go
package version

// Version is stamped at release time via
// -ldflags "-X trts/internal/version.Version=v1.2.3".
var Version = "dev"
