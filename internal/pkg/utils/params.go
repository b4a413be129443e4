package utils

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"merchantpay/internal/pkg/response"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is the pagination window parsed from ?limit=&page=.
type Page struct {
	Limit  int
	Offset int
}

func ParsePage(c *gin.Context) Page {
	p := Page{Limit: DefaultLimit}
	if limit := c.Query("limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil && val > 0 && val <= MaxLimit {
			p.Limit = val
		}
	}
	if page := c.Query("page"); page != "" {
		if val, err := strconv.Atoi(page); err == nil && val > 0 {
			p.Offset = (val - 1) * p.Limit
		}
	}
	return p
}

// Meta builds the pagination block returned next to list data.
func (p Page) Meta(total int64) gin.H {
	totalPages := (int(total) + p.Limit - 1) / p.Limit
	return gin.H{
		"page":        p.Offset/p.Limit + 1,
		"limit":       p.Limit,
		"total":       total,
		"total_pages": totalPages,
	}
}

// ParamID reads a positive int64 path parameter, answering 400 when it is not one.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid "+name)
		return 0, false
	}
	return id, true
}
