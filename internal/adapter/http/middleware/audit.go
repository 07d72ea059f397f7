package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuditAction names an operator-visible state change.
type AuditAction string

const (
	AuditActionLogin          AuditAction = "OPERATOR_LOGIN"
	AuditActionReplaceDeposit AuditAction = "DEPOSIT_REPLACE"
	AuditActionWithdrawal     AuditAction = "WITHDRAWAL"
)

// AuditLog writes one audit line per successful write operation.
func AuditLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		action := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		event := log.Info().
			Str("action", string(action)).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Str("request_id", c.GetString(CtxRequestID))
		if op := c.GetString(CtxOperator); op != "" {
			event = event.Str("operator", op)
		}
		event.Msg("audit")
	}
}

func mapRouteToAction(route, method string) AuditAction {
	switch {
	case route == "/api/v1/auth/login" && method == "POST":
		return AuditActionLogin
	case route == "/api/v1/deposit" && method == "PUT":
		return AuditActionReplaceDeposit
	case route == "/api/v1/withdrawals" && method == "POST":
		return AuditActionWithdrawal
	}
	return ""
}
