package handlers

import "github.com/gin-gonic/gin"

// Authn is an external collaborator; the gateway in front of this service
// resolves the session and forwards the subject in these headers.
const (
	HeaderBuyerID = "X-User-ID"
	HeaderAdminID = "X-Admin-ID"
)

func CurrentBuyer(c *gin.Context) (string, bool) {
	id := c.GetHeader(HeaderBuyerID)
	return id, id != ""
}

func CurrentAdmin(c *gin.Context) (string, bool) {
	id := c.GetHeader(HeaderAdminID)
	return id, id != ""
}
