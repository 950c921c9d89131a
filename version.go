package vine

// Version is the release version of the vine module. Release builds
// override it with -ldflags "-X github.com/aretw0/vine.Version=v1.2.3".
var Version = "0.3.0-dev"
