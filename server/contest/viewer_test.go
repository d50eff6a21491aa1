package contest

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestViewerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	v := ViewerFrom(c)
	assert.Equal(t, Viewer{}, v, "anonymous request has a zero viewer")

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Set("userID", int64(7))
	c.Set("teamID", int64(3))
	c.Set("isAdmin", true)
	v = ViewerFrom(c)
	assert.Equal(t, int64(7), v.UserID)
	assert.Equal(t, int64(3), v.TeamID)
	assert.True(t, v.IsAdmin)
}
