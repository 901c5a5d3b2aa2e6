package routes

import (
	"github.com/duongdev/nv-internal-sub007/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

// SetupTaskRoutes registers the work order endpoints
func SetupTaskRoutes(router *gin.Engine, handler *handlers.TaskHandler, authMiddleware gin.HandlerFunc) {
	tasks := router.Group("/api/tasks")
	tasks.Use(authMiddleware)
	{
		tasks.GET("", handler.ListTasks)
		tasks.POST("", handler.CreateTask)
		tasks.GET("/:id", handler.GetTask)
		tasks.PATCH("/:id", handler.UpdateTask)
		tasks.PATCH("/:id/status", handler.UpdateTaskStatus)
		tasks.PATCH("/:id/assignees", handler.UpdateAssignees)
		tasks.GET("/:id/activities", handler.GetTaskActivities)
	}
}
