package server

import (
	"github.com/gin-gonic/gin"
)

func APIEndpoints(r *gin.Engine, s *Server, authRequired, wsAuthRequired gin.HandlerFunc) {
	// Auth endpoints
	auth := r.Group("/auth")
	{
		auth.POST("/register", s.AuthH.Register)
		auth.POST("/login", s.AuthH.Login)
		auth.POST("/logout", authRequired, s.AuthH.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1")
	api.Use(authRequired)
	{
		users := api.Group("/users")
		{
			users.GET("/me", s.UserH.GetMe)
			users.PATCH("/me", s.UserH.UpdateMe)
			users.PUT("/me/llm-token", s.UserH.SaveLLMToken)
			users.DELETE("/me/llm-token", s.UserH.DeleteLLMToken)
		}

		rooms := api.Group("/rooms")
		{
			rooms.POST("", s.RoomH.CreateRoom)
			rooms.GET("", s.RoomH.GetMyRooms)
			rooms.GET("/:id", s.RoomH.GetRoom)
			rooms.DELETE("/:id", s.RoomH.DeleteRoom)
			rooms.POST("/:id/join", s.RoomH.JoinRoom)
			rooms.GET("/:id/members", s.RoomH.GetRoomMembers)

			rooms.GET("/:id/messages", s.MessageH.GetRoomMessages)
			rooms.POST("/:id/messages", s.MessageH.SendMessage)

			rooms.GET("/:id/files", s.FileH.ListFiles)
			rooms.POST("/:id/files", s.FileH.CreateFile)
			rooms.GET("/:id/files/:fileID", s.FileH.GetFile)
			rooms.PUT("/:id/files/:fileID", s.FileH.UpdateFile)
			rooms.DELETE("/:id/files/:fileID", s.FileH.DeleteFile)

			rooms.GET("/:id/files/:fileID/snapshots", s.FileH.ListSnapshots)
			rooms.POST("/:id/files/:fileID/snapshots", s.FileH.SaveSnapshot)
			rooms.POST("/:id/files/:fileID/rollback", s.FileH.Rollback)
		}

		api.POST("/ai/query", s.AIH.Query)
	}

	// WebSocket, токен приходит в query
	r.GET("/ws", wsAuthRequired, s.WSH.HandleWebSocket)
}
