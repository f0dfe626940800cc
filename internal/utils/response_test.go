package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func runHandler(t *testing.T, handler fiber.Handler) (*http.Response, map[string]any) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("app.Test() unexpected error: %v", err)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return resp, body
}

func TestSuccessResponse(t *testing.T) {
	resp, body := runHandler(t, func(c *fiber.Ctx) error {
		return SuccessResponse(c, fiber.Map{"id": "abc"}, "created", fiber.StatusCreated)
	})

	if resp.StatusCode != fiber.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["message"] != "created" {
		t.Errorf("message = %v, want created", body["message"])
	}
	data, _ := body["data"].(map[string]any)
	if data["id"] != "abc" {
		t.Errorf("data = %v, want id abc", body["data"])
	}
}

func TestSuccessResponse_DefaultStatus(t *testing.T) {
	resp, _ := runHandler(t, func(c *fiber.Ctx) error {
		return SuccessResponse(c, nil, "ok")
	})

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestErrorResponse(t *testing.T) {
	resp, body := runHandler(t, func(c *fiber.Ctx) error {
		return ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
	})

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["error"] != "unauthorized" {
		t.Errorf("error = %v, want unauthorized", body["error"])
	}
}

func TestErrorResponse_DefaultStatus(t *testing.T) {
	resp, _ := runHandler(t, func(c *fiber.Ctx) error {
		return ErrorResponse(c, "boom")
	})

	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}
