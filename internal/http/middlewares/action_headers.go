package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ActionVersion = "2.1.3"
	// SolanaMainnet is the CAIP-2 id of mainnet-beta.
	SolanaMainnet = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
)

func IsActionPath(path string) bool {
	return path == "/actions.json" || strings.HasPrefix(path, "/api/actions/")
}

// ActionHeaders tags action responses with the headers wallets look for. It
// must run before cors so preflight answers carry them too.
func ActionHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsActionPath(c.Request.URL.Path) {
			c.Header("X-Action-Version", ActionVersion)
			c.Header("X-Blockchain-Ids", SolanaMainnet)
		}
		c.Next()
	}
}
