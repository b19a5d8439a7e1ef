package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
)

type reserveRequestPartRequest struct {
	RequestID    string `json:"requestId"`
	SparePartID  string `json:"sparePartId"`
	QuantityUsed int    `json:"quantityUsed"`
}

type updateRequestPartRequest struct {
	QuantityUsed int `json:"quantityUsed"`
}

func (s *Server) ReserveRequestPart(c *gin.Context) {
	var req reserveRequestPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	requestID, ok := bodyID(c, "request", req.RequestID)
	if !ok {
		return
	}
	sparePartID, ok := bodyID(c, "spare_part", req.SparePartID)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.Reserve(c.Request.Context(), sparepartdomain.ReserveRequest{
		Actor:       actor,
		RequestID:   requestID,
		SparePartID: sparePartID,
		Quantity:    req.QuantityUsed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateRequestPart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateRequestPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.Adjust(c.Request.Context(), sparepartdomain.AdjustReservationRequest{
		Actor:         actor,
		RequestPartID: id,
		NewQuantity:   req.QuantityUsed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRequestPart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	if err := s.sparePartSvc.Release(c.Request.Context(), sparepartdomain.ReleaseRequest{
		Actor:         actor,
		RequestPartID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
