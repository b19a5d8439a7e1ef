package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
)

type createSparePartRequest struct {
	Name          string  `json:"name"`
	PresentPieces int     `json:"presentPieces"`
	UnitPrice     int64   `json:"unitPrice"`
	Currency      string  `json:"currency"`
	DepartmentID  *string `json:"departmentId"`
}

func (s *Server) CreateSparePart(c *gin.Context) {
	var req createSparePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	departmentID, ok := optionalBodyID(c, "department", req.DepartmentID)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.Create(c.Request.Context(), sparepartdomain.CreateRequest{
		Actor:         actor,
		Name:          req.Name,
		PresentPieces: req.PresentPieces,
		UnitPrice:     req.UnitPrice,
		Currency:      req.Currency,
		DepartmentID:  departmentID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSpareParts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name         string `form:"name"`
		DepartmentID string `form:"department_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	departmentID, err := parseOptionalSnowflakeID(query.DepartmentID)
	if err != nil {
		AbortWithError(c, newValidationError("department_id", "invalid_department_id", "invalid department_id"))
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.List(c.Request.Context(), actor, sparepartdomain.ListRequest{
		Pagination:   query.Pagination,
		Name:         strings.TrimSpace(query.Name),
		DepartmentID: departmentID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSparePart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// updateSparePartRequest leaves absent fields untouched. clearDepartment
// detaches the part from its department; version enables optimistic
// concurrency.
type updateSparePartRequest struct {
	Name            *string `json:"name"`
	PresentPieces   *int    `json:"presentPieces"`
	UnitPrice       *int64  `json:"unitPrice"`
	Currency        *string `json:"currency"`
	DepartmentID    *string `json:"departmentId"`
	ClearDepartment bool    `json:"clearDepartment"`
	Version         *int64  `json:"version"`
}

func (s *Server) UpdateSparePart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateSparePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	departmentID, ok := optionalBodyID(c, "department", req.DepartmentID)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.Update(c.Request.Context(), sparepartdomain.UpdateRequest{
		Actor:           actor,
		ID:              id,
		Name:            req.Name,
		PresentPieces:   req.PresentPieces,
		UnitPrice:       req.UnitPrice,
		Currency:        req.Currency,
		DepartmentID:    departmentID,
		ClearDepartment: req.ClearDepartment,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSparePart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	if err := s.sparePartSvc.Delete(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type adjustQuantityRequest struct {
	Adjustment int    `json:"adjustment"`
	Reason     string `json:"reason"`
}

func (s *Server) AdjustSparePartQuantity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req adjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.AdjustQuantity(c.Request.Context(), sparepartdomain.AdjustQuantityRequest{
		Actor:      actor,
		ID:         id,
		Adjustment: req.Adjustment,
		Reason:     req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSparePartHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.sparePartSvc.ListHistory(c.Request.Context(), actor, auditdomain.ListPartHistoryRequest{
		Pagination:  query,
		SparePartID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
