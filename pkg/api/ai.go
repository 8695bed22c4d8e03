package api

import (
	"context"
	"net/http"

	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/generate"
	"github.com/vanderheijden86/sage/pkg/model"
)

// GenerateRoadmap asks the backend to build a roadmap for req.
func (c *Client) GenerateRoadmap(ctx context.Context, req generate.Request) (*model.Roadmap, error) {
	if err := generate.Validate(req); err != nil {
		return nil, err
	}
	r, err := c.roadmap(ctx, http.MethodPost, "/ai/generate-roadmap", req)
	if err != nil {
		return nil, err
	}
	r.AIGenerated = true
	if r.Params == nil {
		r.Params = req.Params()
	}
	return r, nil
}

// GenerateOrOffline asks the backend for a roadmap and falls back to the
// offline generator when the backend cannot be reached. A nil client always
// generates offline. The bool reports whether the fallback was used.
func (c *Client) GenerateOrOffline(ctx context.Context, req generate.Request) (*model.Roadmap, bool, error) {
	if c != nil {
		r, err := c.GenerateRoadmap(ctx, req)
		if !IsNetwork(err) {
			return r, false, err
		}
		debug.Log("api: generate: %v, using offline generator", err)
	}
	r, err := generate.Offline(req)
	return r, true, err
}

type resourcesResponse struct {
	Topic     string           `json:"topic"`
	Resources []model.Resource `json:"resources"`
}

// SuggestResources returns curated resources for a topic at a skill level.
func (c *Client) SuggestResources(ctx context.Context, topic, level string) ([]model.Resource, error) {
	body := struct {
		Topic      string `json:"topic"`
		SkillLevel string `json:"skill_level"`
	}{topic, level}
	var out resourcesResponse
	if err := c.do(ctx, http.MethodPost, "/ai/suggest-resources", body, &out); err != nil {
		return nil, err
	}
	return out.Resources, nil
}

// SearchResources runs a web search for learning material on a skill.
func (c *Client) SearchResources(ctx context.Context, skill string) ([]model.Resource, error) {
	body := struct {
		Skill string `json:"skill"`
	}{skill}
	var out resourcesResponse
	if err := c.do(ctx, http.MethodPost, "/ai/search-resources", body, &out); err != nil {
		return nil, err
	}
	return out.Resources, nil
}
