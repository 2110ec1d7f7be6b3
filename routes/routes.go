package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskassign/constants"
	"taskassign/controllers"
	"taskassign/middleware"
	"taskassign/services"
	"taskassign/store"
	"taskassign/utils"
)

type Deps struct {
	Auth  *services.AuthService
	Tasks *services.TaskService
	Users store.UserDirectory
}

func SetupRouter(d Deps) *gin.Engine {
	utils.RegisterValidators()

	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	authController := controllers.AuthController{Auth: d.Auth}
	taskController := controllers.TaskController{Tasks: d.Tasks}
	userController := controllers.UserController{Users: d.Users}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	auth := r.Group("/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.POST("/refresh", authController.Refresh)
	auth.POST("/logout", authController.Logout)

	protected := r.Group("/", middleware.AuthMiddleware(d.Auth))

	users := protected.Group("/users", middleware.RoleMiddleware(constants.RoleAdmin))
	users.GET("/", userController.GetUsers)
	users.GET("/non_admin_usernames", userController.GetNonAdminUsernames)

	tasks := protected.Group("/tasks")
	tasks.POST("/", taskController.CreateTask)
	tasks.GET("/", taskController.GetTasks)
	tasks.GET("/pending", taskController.GetPendingTasks)
	tasks.GET("/:id", taskController.GetTask)
	tasks.PUT("/accept/:id", taskController.AcceptTask)
	tasks.PUT("/reject/:id", taskController.RejectTask)
	tasks.PUT("/:id", taskController.UpdateTask)
	tasks.DELETE("/:id", taskController.DeleteTask)

	return r
}
