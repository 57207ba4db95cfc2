package handlers

import (
	"github.com/gin-gonic/gin"
)

// Routes bundles what Register wires.
type Routes struct {
	Auth      *AuthHandler
	Messages  *MessageHandler
	Groups    *GroupHandler
	Socket    gin.HandlerFunc
	UserAuth  gin.HandlerFunc
	AdminAuth gin.HandlerFunc
}

// Register mounts the REST surface and the socket endpoint.
func Register(router *gin.Engine, r Routes) {
	authGroup := router.Group("/auth")
	authGroup.POST("/signup", r.Auth.Signup)
	authGroup.POST("/login", r.Auth.Login)
	authGroup.POST("/logout", r.Auth.Logout)
	authGroup.GET("/check", r.UserAuth, r.Auth.Check)
	authGroup.PUT("/update-profile", r.UserAuth, r.Auth.UpdateProfile)

	authGroup.POST("/request", r.Auth.RequestAccess)
	authGroup.GET("/requested-users", r.AdminAuth, r.Auth.RequestedUsers)
	authGroup.POST("/accept-request", r.AdminAuth, r.Auth.AcceptRequest)

	authGroup.POST("/admin-login", r.Auth.AdminLogin)
	authGroup.POST("/admin-logout", r.Auth.AdminLogout)
	authGroup.GET("/check-admin", r.AdminAuth, r.Auth.CheckAdmin)

	messages := router.Group("/messages", r.UserAuth)
	messages.GET("/users", r.Messages.ListUsers)
	messages.GET("/:id", r.Messages.GetConversation)
	messages.POST("/send/:id", r.Messages.SendMessage)
	messages.POST("/delete-for-me", r.Messages.DeleteForMe)
	messages.POST("/delete-for-everyone", r.Messages.DeleteForEveryone)

	messages.POST("/create-group", r.Groups.CreateGroup)
	messages.POST("/send-group/:groupId", r.Groups.SendGroupMessage)
	messages.GET("/group-messages/:groupId", r.Groups.GetGroupMessages)
	messages.GET("/groups/:userId", r.Groups.ListUserGroups)

	router.GET("/ws", r.Socket)
}
