package contest

import "github.com/gin-gonic/gin"

// ViewerFrom extracts the request identity set by the auth middleware.
// All fields are zero for anonymous requests; teamID is only attached by
// the full auth middleware, which looks it up from the account.
func ViewerFrom(c *gin.Context) Viewer {
	return Viewer{
		UserID:  c.GetInt64("userID"),
		TeamID:  c.GetInt64("teamID"),
		IsAdmin: c.GetBool("isAdmin"),
	}
}
