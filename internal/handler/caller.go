package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/observability"
	"github.com/gofiber/fiber/v2"
)

const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"

	callerLocalKey = "caller"
)

// RequireCaller trusts the identity headers set by the upstream gateway. A
// request without a company is rejected.
func RequireCaller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID := strings.TrimSpace(c.Get(HeaderCompanyID))
		if companyID == "" {
			return fmt.Errorf("%w: missing %s header", domain.ErrUnauthorized, HeaderCompanyID)
		}

		c.Locals(callerLocalKey, domain.Caller{
			CompanyID: companyID,
			UserID:    strings.TrimSpace(c.Get(HeaderUserID)),
		})
		return c.Next()
	}
}

func callerFrom(c *fiber.Ctx) (domain.Caller, error) {
	caller, ok := c.Locals(callerLocalKey).(domain.Caller)
	if !ok || caller.CompanyID == "" {
		return domain.Caller{}, fmt.Errorf("%w: caller has no company", domain.ErrUnauthorized)
	}
	return caller, nil
}

// requestContext carries the correlation id and the ambient request timeout.
func requestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if correlationID := requestCorrelationID(c); correlationID != "" {
		ctx = observability.WithCorrelationID(ctx, correlationID)
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
