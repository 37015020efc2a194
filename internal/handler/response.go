package handler

import (
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain"
	"github.com/tsubouchi/vn-offshore-apiserver/internal/handler/dto"
)

// Fixed error messages for the general endpoint. Programmatic callers get
// technical English bodies; localization lives on the concierge side.
const (
	msgTimeout       = "The assistant took too long to respond. Please try again."
	msgAPIKeyFailure = "The assistant service is temporarily unavailable due to a configuration problem."
	msgQuotaFailure  = "The assistant service is temporarily unavailable due to usage limits. Please try again later."
	msgNetworkError  = "The assistant service could not be reached. Please try again later."
	msgInternal      = "An unexpected error occurred. Please try again."
)

// validationError writes the 400 response with field-level details.
func validationError(c *app.RequestContext, details []string) {
	c.JSON(consts.StatusBadRequest, dto.ChatErrorResponse{
		Error:   "Invalid request",
		Details: details,
	})
}

// generationError maps a failed generation to the right status: 504 for
// timeouts, 503 for the classified unavailable-service categories, 500
// otherwise.
func generationError(c *app.RequestContext, err error) {
	if domain.IsGenerationTimeout(err) {
		c.JSON(consts.StatusGatewayTimeout, dto.ChatErrorResponse{Error: msgTimeout})
		return
	}

	switch domain.ClassifyGenerationFailure(err) {
	case domain.FailureAPIKey:
		c.JSON(consts.StatusServiceUnavailable, dto.ChatErrorResponse{Error: msgAPIKeyFailure})
	case domain.FailureQuota:
		c.JSON(consts.StatusServiceUnavailable, dto.ChatErrorResponse{Error: msgQuotaFailure})
	case domain.FailureNetwork:
		c.JSON(consts.StatusServiceUnavailable, dto.ChatErrorResponse{Error: msgNetworkError})
	default:
		c.JSON(consts.StatusInternalServerError, dto.ChatErrorResponse{Error: msgInternal})
	}
}

// clientKey derives the rate-limit key from the caller's address: the
// first forwarded-for entry, else the real-ip header, else "unknown".
// The headers are trusted as-is; see DESIGN.md for the spoofing caveat.
func clientKey(c *app.RequestContext) string {
	if xff := string(c.Request.Header.Peek("X-Forwarded-For")); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if rip := string(c.Request.Header.Peek("X-Real-IP")); rip != "" {
		return strings.TrimSpace(rip)
	}
	return "unknown"
}
