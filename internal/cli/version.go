package cli

// Version is the application version.
// Set it at build time with -ldflags "-X github.com/yingtu35/parker/internal/cli.Version=1.0.0".
var Version = "dev"
