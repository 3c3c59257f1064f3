package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func HandleServiceErrorForTest(c *gin.Context, err error) {
	handleServiceError(c, zap.NewNop(), err)
}
