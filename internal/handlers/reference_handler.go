package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/workflow"
)

func (h *Handler) GetSchools(c *gin.Context) {
	schools, err := h.Repo.ListSchools(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "School")
		return
	}
	c.JSON(http.StatusOK, schools)
}

func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.Repo.ListCategories(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "Category")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) CreateSchool(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		badRequest(c, "School name is required.")
		return
	}
	school := &models.School{Name: strings.TrimSpace(req.Name)}
	if err := h.Repo.CreateSchool(c.Request.Context(), school); err != nil {
		h.storeError(c, err, "School")
		return
	}
	c.JSON(http.StatusCreated, school)
}

// CreateCategory adds a report category. Without a priority the category
// gets the one it would have been given as an unknown category.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Priority string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		badRequest(c, "Category name is required.")
		return
	}
	category := &models.Category{Name: strings.TrimSpace(req.Name), Priority: req.Priority}
	if category.Priority == "" {
		category.Priority = workflow.PriorityFor(category.Name, nil)
	}
	if !workflow.ValidPriority(category.Priority) {
		badRequest(c, "Priority must be High, Medium or Low.")
		return
	}

	if err := h.Repo.CreateCategory(c.Request.Context(), category); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "This category already exists."})
			return
		}
		h.storeError(c, err, "Category")
		return
	}
	c.JSON(http.StatusCreated, category)
}
