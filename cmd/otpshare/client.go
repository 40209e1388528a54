package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerOTP/internal/http/handler"
)

// apiError is a non-2xx response from the server.
type apiError struct {
	Status    int
	Message   string
	ErrorType string
}

func (e *apiError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.ErrorType, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

type shareClient struct {
	base    string
	timeout time.Duration
}

func newShareClient(base string, timeout time.Duration) *shareClient {
	return &shareClient{base: strings.TrimRight(base, "/"), timeout: timeout}
}

func (c *shareClient) create(req handler.CreateShareRequest) (*handler.CreateShareResponse, error) {
	agent := fiber.Post(c.base + "/api/share").JSON(req).Timeout(c.timeout)

	var out handler.CreateShareResponse
	if err := c.do(agent, fiber.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *shareClient) redeem(id string) (*handler.RedemptionResponse, error) {
	agent := fiber.Get(c.base + "/api/share/" + url.PathEscape(id)).Timeout(c.timeout)

	var out handler.RedemptionResponse
	if err := c.do(agent, fiber.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *shareClient) do(agent *fiber.Agent, want int, out any) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errors.Join(errs...))
	}

	if code != want {
		var e handler.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			return &apiError{Status: code, Message: strings.TrimSpace(string(body))}
		}
		return &apiError{Status: code, Message: e.Error, ErrorType: e.ErrorType}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
