package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createMeetingRequest struct {
	AgentID string `json:"agent_id"`
}

func (a *API) handleCreateMeeting(c *gin.Context) {
	var req createMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := a.meetings.CreateMeeting(c.Request.Context(), req.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) handleCustomerJoinData(c *gin.Context) {
	join, err := a.meetings.CustomerJoinData(c.Request.Context(), c.Param("meeting_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, join)
}

func (a *API) handleMeetingInfo(c *gin.Context) {
	info, err := a.meetings.Info(c.Request.Context(), c.Param("meeting_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
