package version

// Version is the sage release. Overridden at build time with
//
//	go build -ldflags "-X github.com/vanderheijden86/sage/pkg/version.Version=v0.2.0"
var Version = "v0.1.0"
