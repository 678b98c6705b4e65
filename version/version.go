package version

// Overwritten by ldflags during build.
var (
	Version   = "2.0.0"
	GitCommit = ""
)

// APIProtocol is the protocol version spoken with the browser extension.
const APIProtocol = "1"
