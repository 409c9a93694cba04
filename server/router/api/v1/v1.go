// Package v1 is the thin HTTP layer over the conversation service.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/hrygo/docinsight/internal/profile"
	"github.com/hrygo/docinsight/server/service/conversation"
)

type APIV1Service struct {
	Profile      *profile.Profile
	Conversation conversation.Service
}

func NewAPIV1Service(profile *profile.Profile, conversation conversation.Service) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		Conversation: conversation,
	}
}

// Register mounts the API routes on echoServer. Extra middleware (rate
// limiting, body limits) applies to the upload and chat routes only.
func (s *APIV1Service) Register(echoServer *echo.Echo, mw ...echo.MiddlewareFunc) {
	echoServer.GET("/", s.Root)
	echoServer.POST("/upload/", s.Upload, mw...)
	echoServer.POST("/chat/", s.Chat, mw...)
	echoServer.GET("/sessions/:id/history", s.GetHistory)
	echoServer.DELETE("/sessions/:id", s.DeleteSession)
	echoServer.GET("/stats", s.GetStats)
}
