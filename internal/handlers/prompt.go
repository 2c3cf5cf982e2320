package handlers

import (
	"errors"

	"github.com/acme/supportlens/internal/services"
	"github.com/acme/supportlens/pkg/response"
	"github.com/acme/supportlens/pkg/template"
	"github.com/gin-gonic/gin"
)

// PromptHandler exposes the versioned prompt registry.
type PromptHandler struct {
	promptService *services.PromptService
}

func NewPromptHandler(promptService *services.PromptService) *PromptHandler {
	return &PromptHandler{promptService: promptService}
}

// List returns one current-record summary per known prompt name.
func (h *PromptHandler) List(c *gin.Context) {
	summaries, err := h.promptService.ListAll()
	if err != nil {
		response.ServerError(c, "failed to list prompts: "+err.Error())
		return
	}
	response.Success(c, summaries)
}

// Get returns the current record for a name, or an exact version with ?version=.
func (h *PromptHandler) Get(c *gin.Context) {
	name := c.Param("name")
	version := c.Query("version")

	prompt, err := h.promptService.Get(name, version)
	if err != nil {
		if errors.Is(err, services.ErrPromptNotFound) {
			response.NotFound(c, "prompt not found")
			return
		}
		response.ServerError(c, "failed to get prompt: "+err.Error())
		return
	}
	response.Success(c, prompt)
}

// ListVersions returns all history entries for a name, newest first.
func (h *PromptHandler) ListVersions(c *gin.Context) {
	name := c.Param("name")

	versions, err := h.promptService.ListVersions(name)
	if err != nil {
		response.ServerError(c, "failed to list versions: "+err.Error())
		return
	}
	if len(versions) == 0 {
		response.NotFound(c, "prompt not found")
		return
	}
	response.Success(c, versions)
}

type savePromptRequest struct {
	Name        string `json:"name" binding:"required"`
	Template    string `json:"template" binding:"required"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Metadata    string `json:"metadata"`
}

// Save writes a prompt and returns its version id.
func (h *PromptHandler) Save(c *gin.Context) {
	var req savePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	version, err := h.promptService.Save(services.SavePromptParams{
		Name:        req.Name,
		Template:    req.Template,
		Description: req.Description,
		Version:     req.Version,
		Metadata:    req.Metadata,
	})
	if err != nil {
		response.ServerError(c, "failed to save prompt: "+err.Error())
		return
	}
	response.Created(c, gin.H{"name": req.Name, "version": version})
}

type renderPromptRequest struct {
	Name    string            `json:"name" binding:"required"`
	Version string            `json:"version"`
	Params  map[string]string `json:"params"`
}

// Render resolves a prompt and substitutes the supplied parameters.
func (h *PromptHandler) Render(c *gin.Context) {
	var req renderPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	prompt, err := h.promptService.Get(req.Name, req.Version)
	if err != nil {
		if errors.Is(err, services.ErrPromptNotFound) {
			response.NotFound(c, "prompt not found")
			return
		}
		response.ServerError(c, "failed to get prompt: "+err.Error())
		return
	}

	rendered, err := template.Render(prompt.Template, req.Params)
	if err != nil {
		var missing *template.MissingParamError
		if errors.As(err, &missing) {
			response.BadRequest(c, err.Error())
			return
		}
		response.ServerError(c, "failed to render prompt: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"name":    prompt.Name,
		"version": prompt.Version,
		"text":    rendered,
	})
}
