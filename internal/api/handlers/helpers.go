package handlers

import (
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func logger() *log.Logger { return log.WithPrefix("api") }

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
