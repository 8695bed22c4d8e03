package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vanderheijden86/sage/pkg/model"
)

type listResponse struct {
	Roadmaps []model.Summary `json:"roadmaps"`
	Total    int             `json:"total"`
}

type userListResponse struct {
	Roadmaps []model.Roadmap `json:"roadmaps"`
	Total    int             `json:"total"`
}

type roadmapResponse struct {
	Message string         `json:"message,omitempty"`
	Roadmap *model.Roadmap `json:"roadmap"`
}

// ProgressResult is the backend's answer to a progress update.
type ProgressResult struct {
	Message   string   `json:"message"`
	Completed []string `json:"completed_nodes"`
	Progress  int      `json:"progress"`
}

// SaveRequest is the body of a user roadmap save.
type SaveRequest struct {
	Title       string                  `json:"title" validate:"required"`
	Description string                  `json:"description"`
	Nodes       []model.Node            `json:"nodes" validate:"required,min=1"`
	Connections []model.Edge            `json:"connections"`
	RoadmapID   string                  `json:"roadmap_id,omitempty"`
	AIGenerated bool                    `json:"is_ai_generated"`
	Params      *model.GenerationParams `json:"generation_params,omitempty"`
}

// SaveRequestFor builds a SaveRequest from a roadmap.
func SaveRequestFor(r *model.Roadmap) SaveRequest {
	req := SaveRequest{
		Title:       r.Title,
		Description: r.Description,
		Nodes:       r.Nodes,
		Connections: r.ValidEdges(),
		AIGenerated: r.AIGenerated,
		Params:      r.Params,
	}
	if !r.AIGenerated {
		req.RoadmapID = r.ID
	}
	return req
}

// ListRoadmaps returns official roadmap summaries. An empty category or
// "all" lists everything.
func (c *Client) ListRoadmaps(ctx context.Context, category string) ([]model.Summary, error) {
	path := "/roadmaps/"
	if category != "" && category != "all" {
		path += "?category=" + url.QueryEscape(category)
	}
	var out listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Roadmaps, nil
}

// Categories returns the distinct categories of official roadmaps.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/roadmaps/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// RoadmapBySlug fetches an official roadmap by slug.
func (c *Client) RoadmapBySlug(ctx context.Context, slug string) (*model.Roadmap, error) {
	return c.roadmap(ctx, http.MethodGet, "/roadmaps/"+url.PathEscape(slug), nil)
}

// RoadmapByID fetches an official roadmap by id.
func (c *Client) RoadmapByID(ctx context.Context, id string) (*model.Roadmap, error) {
	return c.roadmap(ctx, http.MethodGet, "/roadmaps/id/"+url.PathEscape(id), nil)
}

// UserRoadmaps lists the signed-in user's saved roadmaps.
func (c *Client) UserRoadmaps(ctx context.Context) ([]model.Roadmap, error) {
	var out userListResponse
	if err := c.do(ctx, http.MethodGet, "/roadmaps/user", nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Roadmaps {
		out.Roadmaps[i].Normalize()
	}
	return out.Roadmaps, nil
}

// UserRoadmap fetches one saved roadmap with its completed nodes.
func (c *Client) UserRoadmap(ctx context.Context, id string) (*model.Roadmap, error) {
	return c.roadmap(ctx, http.MethodGet, "/roadmaps/user/"+url.PathEscape(id), nil)
}

// SaveUserRoadmap stores a roadmap in the user's collection.
func (c *Client) SaveUserRoadmap(ctx context.Context, req SaveRequest) (*model.Roadmap, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, err
	}
	return c.roadmap(ctx, http.MethodPost, "/roadmaps/user", req)
}

// UpdateUserRoadmap replaces the title, description and graph of a saved
// roadmap.
func (c *Client) UpdateUserRoadmap(ctx context.Context, id string, req SaveRequest) (*model.Roadmap, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, err
	}
	return c.roadmap(ctx, http.MethodPut, "/roadmaps/user/"+url.PathEscape(id), req)
}

// DeleteUserRoadmap removes a saved roadmap.
func (c *Client) DeleteUserRoadmap(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/roadmaps/user/"+url.PathEscape(id), nil, nil)
}

// NodeProgress marks one node of a saved roadmap completed or not.
func (c *Client) NodeProgress(ctx context.Context, roadmapID, nodeID string, completed bool) (*ProgressResult, error) {
	body := struct {
		NodeID    string `json:"node_id"`
		Completed bool   `json:"completed"`
	}{nodeID, completed}
	var out ProgressResult
	if err := c.do(ctx, http.MethodPost, "/roadmaps/user/"+url.PathEscape(roadmapID)+"/progress", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateNodeProgress is NodeProgress without the result, so a Client can
// back a progress tracker.
func (c *Client) UpdateNodeProgress(ctx context.Context, roadmapID, nodeID string, completed bool) error {
	_, err := c.NodeProgress(ctx, roadmapID, nodeID, completed)
	return err
}

func (c *Client) roadmap(ctx context.Context, method, path string, body any) (*model.Roadmap, error) {
	var out roadmapResponse
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	if out.Roadmap == nil {
		return nil, &Error{Status: http.StatusNotFound, Message: "Roadmap not found"}
	}
	out.Roadmap.Normalize()
	return out.Roadmap, nil
}
