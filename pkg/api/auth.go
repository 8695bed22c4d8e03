package api

import (
	"context"
	"net/http"

	"github.com/vanderheijden86/sage/pkg/model"
)

// LoginRequest is the body of /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type authResponse struct {
	Message     string     `json:"message"`
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

// Login authenticates and stores the returned session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*model.User, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/auth/login", req)
}

// Register creates an account and stores the returned session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/auth/register", req)
}

// Me returns the user the stored token belongs to.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout ends the session on the backend and always clears it locally.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if c.creds != nil {
		if clearErr := c.creds.ClearSession(); clearErr != nil && err == nil {
			err = clearErr
		}
	}
	return err
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.User, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	if c.creds != nil && out.AccessToken != "" {
		if err := c.creds.SetSession(out.AccessToken, out.User); err != nil {
			return nil, err
		}
	}
	return &out.User, nil
}
