package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskassign/constants"
	"taskassign/middleware"
	"taskassign/services"
)

type TaskController struct {
	Tasks *services.TaskService
}

type createTaskRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	AssignedTo  uint               `json:"assigned_to_id"`
	Priority    constants.Priority `json:"priority" binding:"omitempty,taskpriority"`
}

type updateTaskRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Priority    *constants.Priority `json:"priority"`
	Status      *string             `json:"status"`
	AssignedTo  *uint               `json:"assigned_to_id"`
}

func (tc *TaskController) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := tc.Tasks.CreateTask(c.Request.Context(), middleware.CurrentUser(c), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Priority:    req.Priority,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (tc *TaskController) GetTasks(c *gin.Context) {
	tasks, err := tc.Tasks.ListTasks(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (tc *TaskController) GetPendingTasks(c *gin.Context) {
	tasks, err := tc.Tasks.ListPendingTasks(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (tc *TaskController) GetTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	task, err := tc.Tasks.GetTask(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) AcceptTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	task, err := tc.Tasks.AcceptTask(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) RejectTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	task, err := tc.Tasks.RejectTask(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) UpdateTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := tc.Tasks.UpdateTask(c.Request.Context(), middleware.CurrentUser(c), id, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) DeleteTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	task, err := tc.Tasks.DeleteTask(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Task '%s' deleted successfully", task.Title)})
}
