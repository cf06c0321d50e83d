package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/responses"
	"github.com/mescon/Hassarr/internal/services"
)

const llmAPIPrompt = "Use these tools to manage your media library through Overseerr. You can add movies and TV shows, check their status, search for content, and get active downloads."

// ToolParameter describes one string argument of an LLM tool.
type ToolParameter struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ToolSchema is the JSON-schema style argument description of a tool.
type ToolSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]ToolParameter `json:"properties"`
	Required   []string                 `json:"required"`
}

// LLMTool is a tool exposed to language-model agents.
type LLMTool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  ToolSchema `json:"parameters"`

	// failure is the "Failed to ..." prefix of error results.
	failure string
	// arg is the single required argument, or "" for none.
	arg string
	run func(s *RESTServer, ctx context.Context, uc responses.UserContext, arg string) responses.Response
}

func stringArg(name, description string) ToolSchema {
	return ToolSchema{
		Type:       "object",
		Properties: map[string]ToolParameter{name: {Type: "string", Description: description}},
		Required:   []string{name},
	}
}

var llmTools = []LLMTool{
	{
		Name:        "hassarr_add_media",
		Description: "Add a movie or TV show to Overseerr for download. Automatically detects whether it's a movie or TV show.",
		Parameters:  stringArg("title", "The title of the movie or TV show to add"),
		failure:     "Failed to add media",
		arg:         "title",
		run: func(s *RESTServer, ctx context.Context, uc responses.UserContext, title string) responses.Response {
			return s.media.AddMedia(ctx, uc, services.AddMediaInput{Title: title})
		},
	},
	{
		Name:        "hassarr_check_status",
		Description: "Check the status of a movie or TV show in Overseerr including download progress, who requested it, and detailed information.",
		Parameters:  stringArg("title", "The title of the movie or TV show to check"),
		failure:     "Failed to check status",
		arg:         "title",
		run: func(s *RESTServer, ctx context.Context, uc responses.UserContext, title string) responses.Response {
			return s.media.CheckMediaStatus(ctx, uc, title)
		},
	},
	{
		Name:        "hassarr_search_media",
		Description: "Search for movies and TV shows with detailed results including ratings, overviews, and library status.",
		Parameters:  stringArg("query", "Search query for movies or TV shows"),
		failure:     "Failed to search media",
		arg:         "query",
		run: func(s *RESTServer, ctx context.Context, uc responses.UserContext, query string) responses.Response {
			return s.media.SearchMedia(ctx, uc, query)
		},
	},
	{
		Name:        "hassarr_get_active_downloads",
		Description: "Get information about currently active downloads and pending requests, prioritizing items that are actively downloading.",
		Parameters:  ToolSchema{Type: "object", Properties: map[string]ToolParameter{}, Required: []string{}},
		failure:     "Failed to get active downloads",
		run: func(s *RESTServer, ctx context.Context, uc responses.UserContext, _ string) responses.Response {
			return s.media.GetActiveRequests(ctx, uc, services.ListInput{})
		},
	},
}

func findLLMTool(name string) (LLMTool, bool) {
	for _, t := range llmTools {
		if t.Name == name {
			return t, true
		}
	}
	return LLMTool{}, false
}

func (s *RESTServer) listLLMTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":       "Hassarr Media Management",
		"api_prompt": llmAPIPrompt,
		"tools":      llmTools,
	})
}

// toolError is the result shape agents receive when a tool cannot run.
func toolError(t LLMTool, err error) gin.H {
	logger.Errorf("Error in %s tool: %v", t.Name, err)
	return gin.H{
		"action":  "error",
		"message": t.failure + ": " + err.Error(),
	}
}

// callLLMTool runs a tool. Argument errors are reported in the body with
// status 200 so agents can read them like any other result.
func (s *RESTServer) callLLMTool(c *gin.Context) {
	tool, ok := findLLMTool(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown tool: " + c.Param("name")})
		return
	}

	var req struct {
		Args        map[string]any         `json:"tool_args"`
		UserContext *responses.UserContext `json:"user_context"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, toolError(tool, err))
			return
		}
	}

	var arg string
	if tool.arg != "" {
		v, _ := req.Args[tool.arg].(string)
		arg = strings.TrimSpace(v)
		if arg == "" {
			c.JSON(http.StatusOK, toolError(tool, errors.New("missing required argument '"+tool.arg+"'")))
			return
		}
	}

	logger.Infof("LLM tool %s called (%s=%q)", tool.Name, tool.arg, arg)
	c.JSON(http.StatusOK, tool.run(s, c.Request.Context(), userContext(c, req.UserContext), arg))
}
