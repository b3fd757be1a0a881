package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quarters/portal/internal/models"
	"quarters/portal/internal/service"
)

func (h HandlerSet) ListComplaints(c *gin.Context) {
	filter := service.ScopeFor(currentUser(c), service.ComplaintFilter{
		Status:     models.ComplaintStatus(c.Query("status")),
		Type:       models.ComplaintType(c.Query("type")),
		Department: c.Query("department"),
		Search:     c.Query("q"),
	})

	items := h.app.Complaints.List(filter)
	resp := gin.H{
		"items": items,
		"total": len(items),
		"mode":  h.app.Sessions.Mode(),
	}
	if err := h.app.Complaints.LastError(); err != nil {
		resp["lastError"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) ComplaintSummary(c *gin.Context) {
	user := currentUser(c)
	visible := h.app.Complaints.List(service.ScopeFor(user, service.ComplaintFilter{}))

	department := c.Query("department")
	if user.Role == models.UserRoleDepartment {
		department = user.Department
	}
	c.JSON(http.StatusOK, service.Summarize(visible, department, h.now()))
}

func (h HandlerSet) RefreshComplaints(c *gin.Context) {
	if err := h.app.Complaints.Fetch(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.ListComplaints(c)
}

// lookup returns the complaint only when the current user may see it.
func (h HandlerSet) lookup(c *gin.Context) (models.Complaint, bool) {
	complaint, err := h.app.Complaints.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return models.Complaint{}, false
	}
	scope := service.ScopeFor(currentUser(c), service.ComplaintFilter{})
	if len(service.FilterComplaints([]models.Complaint{complaint}, scope)) == 0 {
		h.writeError(c, service.ErrComplaintNotFound)
		return models.Complaint{}, false
	}
	return complaint, true
}

func (h HandlerSet) GetComplaint(c *gin.Context) {
	complaint, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, complaint)
}

type createComplaintRequest struct {
	Type        models.ComplaintType `json:"type" binding:"required"`
	Description string               `json:"description" binding:"required"`
	// Admins file on behalf of an employee; employees always file as themselves.
	EmployeeID      string `json:"employeeId"`
	EmployeeName    string `json:"employeeName"`
	EmployeeQuarter string `json:"employeeQuarter"`
	EmployeeArea    string `json:"employeeArea"`
	EmployeeContact string `json:"employeeContact"`
}

func (h HandlerSet) CreateComplaint(c *gin.Context) {
	var req createComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user := currentUser(c)
	in := service.NewComplaint{
		EmployeeID:      req.EmployeeID,
		EmployeeName:    req.EmployeeName,
		EmployeeQuarter: req.EmployeeQuarter,
		EmployeeArea:    req.EmployeeArea,
		EmployeeContact: req.EmployeeContact,
		Type:            req.Type,
		Description:     req.Description,
	}
	if user.Role == models.UserRoleEmployee || in.EmployeeID == "" {
		in.EmployeeID = user.ID
		in.EmployeeName = user.Name
		if info := user.EmployeeInfo; info != nil {
			in.EmployeeQuarter = info.Quarter
			in.EmployeeArea = info.Area
			in.EmployeeContact = info.ContactNumber
		}
	}

	complaint, err := h.app.Complaints.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

type assignRequest struct {
	DepartmentID   string `json:"departmentId"`
	DepartmentName string `json:"departmentName" binding:"required"`
	EstimatedDays  int    `json:"estimatedDays" binding:"min=0,max=30"`
	EstimatedDate  string `json:"estimatedDate"`
}

func (h HandlerSet) AssignComplaint(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	estimated, err := parseDate(req.EstimatedDate)
	if err != nil {
		badRequest(c, err)
		return
	}

	err = h.app.Complaints.AssignToDepartment(c.Request.Context(), c.Param("id"), service.DepartmentAssignment{
		DepartmentID:   req.DepartmentID,
		DepartmentName: req.DepartmentName,
		EstimatedDays:  req.EstimatedDays,
		EstimatedDate:  estimated,
	})
	h.respondWithComplaint(c, err)
}

type statusRequest struct {
	Status  models.ComplaintStatus `json:"status" binding:"required"`
	Comment string                 `json:"comment"`
}

func (h HandlerSet) UpdateComplaintStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, ok := h.lookup(c); !ok {
		return
	}

	err := h.app.Complaints.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Comment)
	h.respondWithComplaint(c, err)
}

type authorityRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	ResolutionDate string `json:"resolutionDate"`
	Comments       string `json:"comments"`
}

func (h HandlerSet) AssignAuthority(c *gin.Context) {
	var req authorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resolution, err := parseDate(req.ResolutionDate)
	if err != nil {
		badRequest(c, err)
		return
	}

	err = h.app.Complaints.AssignToAuthority(c.Request.Context(), c.Param("id"), service.AuthorityAssignment{
		Name:           req.Name,
		Email:          req.Email,
		ResolutionDate: resolution,
		Comments:       req.Comments,
	})
	h.respondWithComplaint(c, err)
}

type commentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

func (h HandlerSet) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, ok := h.lookup(c); !ok {
		return
	}

	err := h.app.Complaints.AddComment(c.Request.Context(), c.Param("id"), req.Comment)
	h.respondWithComplaint(c, err)
}

type escalateRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h HandlerSet) EscalateComplaint(c *gin.Context) {
	var req escalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, ok := h.lookup(c); !ok {
		return
	}

	err := h.app.Complaints.Escalate(c.Request.Context(), c.Param("id"), req.Reason)
	h.respondWithComplaint(c, err)
}

func (h HandlerSet) respondWithComplaint(c *gin.Context, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	complaint, err := h.app.Complaints.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty means unset.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", value)
}
