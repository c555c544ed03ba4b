package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	obscontext "github.com/smallbiznis/donora/internal/observability/context"
	"github.com/smallbiznis/donora/internal/observability/logger"
	"github.com/smallbiznis/donora/internal/orgcontext"
	"go.uber.org/zap"
)

const (
	HeaderOrg        = "X-Org-ID"
	HeaderUser       = "X-User-ID"
	contextUserIDKey = "user_id"
)

// OrgContext resolves the organization from X-Org-ID. Requests without it
// are rejected.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := parseOptionalSnowflakeID(c.GetHeader(HeaderOrg))
		if err != nil || orgID == nil {
			AbortWithError(c, ErrOrgRequired)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), *orgID)
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorContext reads the authenticated user from X-User-ID. The header is
// optional; a malformed value is rejected.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := parseOptionalSnowflakeID(c.GetHeader(HeaderUser))
		if err != nil {
			AbortWithError(c, ErrInvalidActor)
			return
		}
		if userID != nil {
			c.Set(contextUserIDKey, *userID)
			ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), userID.String())
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) *snowflake.ID {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return nil
	}
	id, ok := value.(snowflake.ID)
	if !ok || id == 0 {
		return nil
	}
	return &id
}

// WriteRateLimit throttles mutating requests per organization.
func (s *Server) WriteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.writeLimiter.Enabled() || !isWriteMethod(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		if !ok || orgID == 0 {
			AbortWithError(c, ErrOrgRequired)
			return
		}

		result, err := s.writeLimiter.AllowOrg(ctx, orgID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("write rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retry := int(result.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			logger.FromContext(ctx).Warn("write rate limit exceeded", zap.String("route", c.FullPath()))
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func isWriteMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	default:
		return false
	}
}
