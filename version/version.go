package version

// Version is the pkgsort release version. Overridden at build time via
// -ldflags "-X pkgsort/version.Version=...".
var Version = "0.4.1"
