package helper_util

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetPaginationParams reads the limit and offset query parameters, defaulting
// to a page of 10 from the start. Negative values are rejected.
func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 0 {
		return 0, 0, fmt.Errorf("invalid limit %q", c.Query("limit"))
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset %q", c.Query("offset"))
	}
	return limit, offset, nil
}
