package version

// VERSION and Commit are stamped at build time:
//
//	go build -ldflags "-X github.com/chronologos/ibgw/internal/version.VERSION=0.1.0 -X github.com/chronologos/ibgw/internal/version.Commit=abc123" ./cmd/ibgw
var (
	VERSION = "dev"
	Commit  = "dev"
)
