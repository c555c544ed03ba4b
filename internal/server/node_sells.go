package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	nodeselldomain "github.com/smallbiznis/donora/internal/nodesell/domain"
	referraldomain "github.com/smallbiznis/donora/internal/referral/domain"
)

// CreateNodeSell records a sale. The X-User-ID caller, when present, is
// enrolled as a referral of the node boss.
func (s *Server) CreateNodeSell(c *gin.Context) {
	var req nodeselldomain.CreateNodeSellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.nodeSellSvc.Create(c.Request.Context(), nodeselldomain.CreateNodeSellRequest{
		NodeBossID:  strings.TrimSpace(req.NodeBossID),
		NodeShareID: strings.TrimSpace(req.NodeShareID),
		Units:       req.Units,
		Price:       strings.TrimSpace(req.Price),
	}, actorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetNodeSellByID(c *gin.Context) {
	resp, err := s.nodeSellSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReferrals(c *gin.Context) {
	var query referraldomain.ListReferralRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	items, err := s.referralSvc.List(c.Request.Context(), referraldomain.ListReferralRequest{
		UserID:     strings.TrimSpace(query.UserID),
		NodeBossID: strings.TrimSpace(query.NodeBossID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if items == nil {
		items = []referraldomain.NodeReferral{}
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
