package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contentdomain "github.com/smallbiznis/donora/internal/content/domain"
	"github.com/smallbiznis/donora/pkg/db/pagination"
)

func (s *Server) CreateContentItem(c *gin.Context) {
	var req contentdomain.CreateContentItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.contentSvc.Create(c.Request.Context(), contentdomain.CreateContentItemRequest{
		Title: strings.TrimSpace(req.Title),
		Body:  req.Body,
		Meta:  req.Meta,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListContentItems(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.contentSvc.List(c.Request.Context(), contentdomain.ListContentItemRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.ContentItems, "page_info": resp.PageInfo})
}

func (s *Server) GetContentItemByID(c *gin.Context) {
	resp, err := s.contentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
