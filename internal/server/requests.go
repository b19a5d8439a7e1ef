package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	servicerequestdomain "github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
)

type createRequestRequest struct {
	CustomerID      string `json:"customerId"`
	DepartmentID    string `json:"departmentId"`
	Priority        string `json:"priority"`
	WarrantyStatus  string `json:"warrantyStatus"`
	ExecutionMethod string `json:"executionMethod"`
	Description     string `json:"description"`
	Currency        string `json:"currency"`
}

func (s *Server) CreateRequest(c *gin.Context) {
	var req createRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	customerID, ok := bodyID(c, "customer", req.CustomerID)
	if !ok {
		return
	}
	departmentID, ok := bodyID(c, "department", req.DepartmentID)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.Create(c.Request.Context(), servicerequestdomain.CreateRequest{
		Actor:           actor,
		CustomerID:      customerID,
		DepartmentID:    departmentID,
		Priority:        req.Priority,
		WarrantyStatus:  req.WarrantyStatus,
		ExecutionMethod: req.ExecutionMethod,
		Description:     req.Description,
		Currency:        req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRequests(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status               string `form:"status"`
		DepartmentID         string `form:"department_id"`
		AssignedTechnicianID string `form:"assigned_technician_id"`
		CustomerID           string `form:"customer_id"`
		Overdue              string `form:"overdue"`
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
	technicianID, err := parseOptionalSnowflakeID(query.AssignedTechnicianID)
	if err != nil {
		AbortWithError(c, newValidationError("assigned_technician_id", "invalid_assigned_technician_id", "invalid assigned_technician_id"))
		return
	}
	customerID, err := parseOptionalSnowflakeID(query.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer_id", "invalid customer_id"))
		return
	}
	overdue, err := parseOptionalBool(query.Overdue)
	if err != nil {
		AbortWithError(c, newValidationError("overdue", "invalid_overdue", "invalid overdue"))
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.List(c.Request.Context(), actor, servicerequestdomain.ListRequest{
		Pagination:           query.Pagination,
		Status:               strings.TrimSpace(query.Status),
		DepartmentID:         departmentID,
		AssignedTechnicianID: technicianID,
		CustomerID:           customerID,
		Overdue:              overdue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type changeStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func (s *Server) ChangeRequestStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.ChangeStatus(c.Request.Context(), servicerequestdomain.ChangeStatusRequest{
		Actor:   actor,
		ID:      id,
		Status:  req.Status,
		Comment: req.Comment,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type assignRequest struct {
	TechnicianID string `json:"technicianId"`
}

func (s *Server) AssignRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	technicianID, ok := bodyID(c, "technician", req.TechnicianID)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.Assign(c.Request.Context(), servicerequestdomain.AssignRequest{
		Actor:        actor,
		ID:           id,
		TechnicianID: technicianID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type closeRequestRequest struct {
	FinalNotes           string `json:"finalNotes"`
	CustomerSatisfaction *int   `json:"customerSatisfaction"`
}

func (s *Server) CloseRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req closeRequestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.Close(c.Request.Context(), servicerequestdomain.CloseRequest{
		Actor:                actor,
		ID:                   id,
		FinalNotes:           req.FinalNotes,
		CustomerSatisfaction: req.CustomerSatisfaction,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type addCostRequest struct {
	Description string  `json:"description"`
	Amount      int64   `json:"amount"`
	CostType    string  `json:"costType"`
	Currency    string  `json:"currency"`
	SparePartID *string `json:"sparePartId"`
	Quantity    *int    `json:"quantity"`
}

func (s *Server) AddRequestCost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req addCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	sparePartID, ok := optionalBodyID(c, "spare_part", req.SparePartID)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.AddCost(c.Request.Context(), servicerequestdomain.AddCostRequest{
		Actor:       actor,
		RequestID:   id,
		Description: req.Description,
		Amount:      req.Amount,
		CostType:    req.CostType,
		Currency:    req.Currency,
		SparePartID: sparePartID,
		Quantity:    req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRequestCosts(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	actor, _ := actorFrom(c)
	resp, err := s.requestSvc.ListCosts(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRequestActivities(c *gin.Context) {
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
	resp, err := s.requestSvc.ListActivities(c.Request.Context(), actor, auditdomain.ListActivitiesRequest{
		Pagination: query,
		RequestID:  id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRequestParts(c *gin.Context) {
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
	resp, err := s.sparePartSvc.ListRequestParts(c.Request.Context(), actor, sparepartdomain.ListRequestPartsRequest{
		Pagination: query,
		RequestID:  id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
