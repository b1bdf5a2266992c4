package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/handler"
	"github.com/ashwinyue/next-assistants/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingMiddleware(logger))

	// 健康检查与指标
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtSecret))
	{
		v1.GET("/models", h.Model.ListModels)
		v1.POST("/messages/search", h.Message.SearchMessages)

		// 无状态生成
		v1.POST("/chat/completions", h.Chat.ChatCompletions)
		v1.POST("/completions", h.Chat.Completions)
		v1.POST("/embeddings", h.Embedding.CreateEmbeddings)

		// Assistants 助手
		assistants := v1.Group("/assistants")
		{
			assistants.POST("", h.Assistant.CreateAssistant)
			assistants.GET("", h.Assistant.ListAssistants)
			assistants.GET("/:assistant_id", h.Assistant.GetAssistant)
			assistants.POST("/:assistant_id", h.Assistant.ModifyAssistant)
			assistants.DELETE("/:assistant_id", h.Assistant.DeleteAssistant)
		}

		// Threads 线程
		threads := v1.Group("/threads")
		{
			threads.POST("", h.Thread.CreateThread)
			threads.GET("/:thread_id", h.Thread.GetThread)
			threads.POST("/:thread_id", h.Thread.ModifyThread)
			threads.DELETE("/:thread_id", h.Thread.DeleteThread)

			// Messages 消息
			threads.POST("/:thread_id/messages", h.Message.CreateMessage)
			threads.GET("/:thread_id/messages", h.Message.ListMessages)
			threads.GET("/:thread_id/messages/:message_id", h.Message.GetMessage)
			threads.POST("/:thread_id/messages/:message_id", h.Message.ModifyMessage)

			// Runs 运行
			threads.POST("/:thread_id/runs", h.Run.CreateRun)
			threads.GET("/:thread_id/runs", h.Run.ListRuns)
			threads.GET("/:thread_id/runs/:run_id", h.Run.GetRun)
			threads.POST("/:thread_id/runs/:run_id", h.Run.ModifyRun)
		}
	}

	return r
}
