package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/simfield_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyAgentId       = appctx.ContextKeyAgentId
	ContextKeyAgentName     = appctx.ContextKeyAgentName
	ContextKeyAgentRole     = appctx.ContextKeyAgentRole
	ContextKeyDealerCode    = appctx.ContextKeyDealerCode
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetAgentIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAgentId)
}

func GetAgentNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAgentName)
}

func GetAgentRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAgentRole)
}

func GetDealerCodeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyDealerCode)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetAgentIdInContext(ctx context.Context, agentId string) context.Context {
	return appctx.Set(ctx, ContextKeyAgentId, agentId)
}

func SetAgentNameInContext(ctx context.Context, agentName string) context.Context {
	return appctx.Set(ctx, ContextKeyAgentName, agentName)
}

func SetAgentRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyAgentRole, role)
}

func SetDealerCodeInContext(ctx context.Context, dealerCode string) context.Context {
	return appctx.Set(ctx, ContextKeyDealerCode, dealerCode)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
