package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is mounted under /api/v1/<Root()>.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}

// IRootHandler owns routes outside the versioned API, such as the action endpoints.
type IRootHandler interface {
	Mount(r gin.IRouter)
}
