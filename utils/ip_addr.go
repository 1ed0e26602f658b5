package utils

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// Trusted platforms that put the client IP in a request header
const (
	PlatformNone            = ""
	PlatformCloudflare      = "cloudflare"
	PlatformGoogleAppEngine = "google-app-engine"
)

// TrustClientIP configures where the engine reads the client IP address from.
// A platform header is only honored when the server really runs behind that
// platform, and forwarding headers only when the connection comes from one of
// the trusted proxies. With neither set, c.ClientIP() is the remote address of
// the connection.
func TrustClientIP(r *gin.Engine, platform string, proxies []string) error {

	switch strings.ToLower(strings.TrimSpace(platform)) {
	case PlatformNone:
		r.TrustedPlatform = ""
	case PlatformCloudflare:
		r.TrustedPlatform = gin.PlatformCloudflare
	case PlatformGoogleAppEngine:
		r.TrustedPlatform = gin.PlatformGoogleAppEngine
	default:
		return fmt.Errorf("unknown trusted platform %q", platform)
	}

	// gin trusts every proxy unless told otherwise
	if len(proxies) == 0 {
		proxies = nil
	}
	return r.SetTrustedProxies(proxies)

}
