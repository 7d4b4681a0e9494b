package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/middlewares"
	"bitbucket.org/mmdatafocus/simfield_backend/models"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

type loginRequest struct {
	IdNumber string `json:"id_number" binding:"required"`
	Pin      string `json:"pin" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		agent, token, err := models.AgentLogin(c.Request.Context(), req.IdNumber, req.Pin)
		if err != nil {
			switch err {
			case models.ErrorInvalidCredentials, models.ErrorAccountInactive, models.ErrorRoleNotAllowed:
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			default:
				config.LogError(config.GetLogger(), "server.go", "loginHandler", "AgentLogin", req.IdNumber, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "agent": agent})
	}
}

// sessionAgent resolves the authenticated agent's full profile. Claims carry
// only id/name; the denormalized display fields come from the users
// collection at submission time.
func sessionAgent(c *gin.Context) (*models.Agent, bool) {
	claims := middlewares.CtxValue(c.Request.Context())
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	agent, err := models.GetAgent(c.Request.Context(), claims.AgentId)
	if err != nil {
		config.LogError(config.GetLogger(), "server.go", "sessionAgent", "GetAgent", claims.AgentId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return nil, false
	}
	return agent, true
}

func createActivationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, ok := sessionAgent(c)
		if !ok {
			return
		}

		var input models.NewActivation
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		outcome, err := models.ActivateSerial(c.Request.Context(), agent.Identity(), &input)
		if err != nil {
			// Only the terminal write surfaces an error; everything else is a
			// typed rejection below.
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if outcome.Rejected {
			status := http.StatusConflict
			if outcome.Reason == models.RejectInvalidFormat {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, outcome)
			return
		}

		c.JSON(http.StatusCreated, outcome)
	}
}

func listActivationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middlewares.CtxValue(c.Request.Context())
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		records, err := models.GetAgentActivations(c.Request.Context(), claims.AgentId)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "listActivationsHandler", "GetAgentActivations", claims.AgentId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch activations"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"activations": records})
	}
}

func duplicateCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		serial := c.Param("serial")
		if !models.IsValidSerialFormat(serial) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ErrorInvalidSerialFormat.Error()})
			return
		}
		c.JSON(http.StatusOK, models.CheckActivationDuplicate(c.Request.Context(), serial))
	}
}

func validateStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		serial := c.Param("serial")
		if !models.IsValidSerialFormat(serial) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ErrorInvalidSerialFormat.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"serial": serial, "in_stock": models.IsSerialInStock(c.Request.Context(), serial)})
	}
}

type batchValidateRequest struct {
	Serials []string `json:"serials" binding:"required"`
}

func batchValidateStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		for _, serial := range req.Serials {
			if !models.IsValidSerialFormat(serial) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ErrorInvalidSerialFormat.Error(), "serial": serial})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"results": models.ValidateSerialsInStock(c.Request.Context(), req.Serials)})
	}
}

func refreshCacheHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middlewares.CtxValue(c.Request.Context())
		agentId := ""
		if claims != nil {
			agentId = claims.AgentId
		}
		if err := models.RefreshGlobalCache(c.Request.Context(), agentId); err != nil {
			config.LogError(config.GetLogger(), "server.go", "refreshCacheHandler", "RefreshGlobalCache", agentId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cache refresh failed"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func diagnoseStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := models.DiagnoseStockShape(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "diagnoseStockHandler", "DiagnoseStockShape", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "diagnosis failed"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func createStartKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, ok := sessionAgent(c)
		if !ok {
			return
		}

		var input models.NewStartKeyRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		if input.SimSerial != "" {
			if !models.IsValidSerialFormat(input.SimSerial) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": utils.ErrorInvalidSerialFormat.Error()})
				return
			}
			if models.CheckStartKeyDuplicate(c.Request.Context(), input.SimSerial) {
				c.JSON(http.StatusConflict, gin.H{"error": "A start key request already exists for this SIM serial"})
				return
			}
		}

		requestId, err := models.CreateStartKeyRequest(c.Request.Context(), agent.Identity(), &input)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "createStartKeyHandler", "CreateStartKeyRequest", input.SimSerial, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit start key request"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"request_id": requestId})
	}
}

func listStartKeysHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middlewares.CtxValue(c.Request.Context())
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		requests, err := models.GetAgentStartKeyRequests(c.Request.Context(), claims.AgentId)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "listStartKeysHandler", "GetAgentStartKeyRequests", claims.AgentId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch start key requests"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": requests})
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until Firestore is ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on document-store readiness. Redis is not
		// gated: every cache degrades to a miss without it.
		if config.GetFirestore() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/auth/login", loginHandler())

	authed := r.Group("/", middlewares.RequireAgent())
	authed.POST("/activations", createActivationHandler())
	authed.GET("/activations", listActivationsHandler())
	authed.GET("/activations/duplicate/:serial", duplicateCheckHandler())
	authed.GET("/stock/validate/:serial", validateStockHandler())
	authed.POST("/stock/validate", batchValidateStockHandler())
	authed.POST("/cache/refresh", refreshCacheHandler())
	authed.GET("/stock/diagnose", diagnoseStockHandler())
	authed.POST("/startkeys", createStartKeyHandler())
	authed.GET("/startkeys", listStartKeysHandler())
	authed.POST("/uploads/photo", uploadPhotoHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectFirestoreWithRetry()
	config.ConnectRedisWithRetry()

	// Warm the global activation cache so the first scans of the day hit it.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), time.Minute)
	if err := models.RefreshGlobalCache(warmCtx, "startup"); err != nil {
		logger.WithFields(logrus.Fields{"field": "globalCache"}).Warn("startup cache warm failed: " + err.Error())
	}
	cancelWarm()

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
