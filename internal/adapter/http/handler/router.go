package handler

import (
	"atm-engine/internal/adapter/http/middleware"
	redisStore "atm-engine/internal/adapter/storage/redis"
	"atm-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WithdrawalSvc  ports.WithdrawalService
	DepositSvc     ports.DepositService
	AuthSvc        ports.AuthService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))
	r.Use(middleware.AuditLog(deps.Logger))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/login", rl("auth_login"), authHandler.Login)

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	withdrawals := v1.Group("/withdrawals")
	{
		withdrawals.POST("", rl("withdrawals"), withdrawalHandler.Withdraw)
		withdrawals.GET("", jwtAuth, rl("operator"), withdrawalHandler.ListWithdrawals)
		withdrawals.GET("/:id", jwtAuth, rl("operator"), withdrawalHandler.GetWithdrawal)
	}

	depositHandler := NewDepositHandler(deps.DepositSvc)
	deposit := v1.Group("/deposit", jwtAuth, rl("operator"))
	{
		deposit.GET("", depositHandler.GetDeposit)
		deposit.PUT("", depositHandler.ReplaceDeposit)
	}

	return r
}
