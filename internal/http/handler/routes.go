package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docflow/internal/http/middleware"
	"docflow/internal/model"
	"docflow/internal/service"
)

// workflowRequest is the body of every workflow mutation endpoint.
type workflowRequest struct {
	Reason        string   `json:"reason"`
	AssignedRoles []string `json:"assigned_roles"`
}

// signRequest is the JSON body of the signature endpoint.
type signRequest struct {
	Action string `json:"action"`
	Role   string `json:"role"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay free of workflow logic: they translate requests, call the services,
// and map failures onto the error envelope.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, wfSvc service.WorkflowService, jwtSecret string) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	auth := middleware.Auth(jwtSecret, false)

	// List documents with limit & offset.
	app.Get("/documents", auth, func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	})

	// Create a new draft document.
	app.Post("/documents", auth, func(c *fiber.Ctx) error {
		var body struct {
			Title    string `json:"title"`
			TypeCode string `json:"type_code"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		identity := identityFrom(c)
		if identity == nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		}

		doc, err := docSvc.Create(c.UserContext(), body.Title, body.TypeCode, *identity)
		if err != nil {
			if errors.Is(err, service.ErrTitleRequired) {
				return writeError(c, fiber.StatusBadRequest, "TITLE_REQUIRED", "title is required")
			}
			return writeError(c, fiber.StatusUnprocessableEntity, "INVALID_TYPE", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	// Get document by ID.
	app.Get("/documents/:id", auth, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(doc)
	})

	// Workflow operations. Each body carries an optional reason and optional
	// document-scoped assigned roles merged into the caller's RBAC roles.
	workflow := app.Group("/documents/:id/workflow", auth)

	workflow.Post("/start", func(c *fiber.Ctx) error {
		return runWorkflowOp(c, func(ctx context.Context, docID string, req workflowRequest, roles []string) error {
			return wfSvc.StartWorkflow(ctx, docID, roles, req.AssignedRoles, nil)
		})
	})

	workflow.Post("/advance", func(c *fiber.Ctx) error {
		return runWorkflowOp(c, func(ctx context.Context, docID string, req workflowRequest, roles []string) error {
			return wfSvc.ForwardTransition(ctx, docID, req.Reason, roles, req.AssignedRoles)
		})
	})

	workflow.Post("/abort", func(c *fiber.Ctx) error {
		return runWorkflowOp(c, func(ctx context.Context, docID string, req workflowRequest, roles []string) error {
			return wfSvc.AbortWorkflow(ctx, docID, req.Reason, roles, req.AssignedRoles)
		})
	})

	workflow.Post("/revert", func(c *fiber.Ctx) error {
		return runWorkflowOp(c, func(ctx context.Context, docID string, req workflowRequest, roles []string) error {
			return wfSvc.BackwardToDraft(ctx, docID, req.Reason, roles, req.AssignedRoles)
		})
	})

	workflow.Post("/archive", func(c *fiber.Ctx) error {
		return runWorkflowOp(c, func(ctx context.Context, docID string, req workflowRequest, roles []string) error {
			return wfSvc.Archive(ctx, docID, req.Reason, roles, req.AssignedRoles)
		})
	})

	// Record a signature for a lifecycle action. Accepts an optional signed
	// artifact as multipart field "artifact".
	app.Post("/documents/:id/signatures", auth, func(c *fiber.Ctx) error {
		docID := c.Params("id")
		if _, err := uuid.Parse(docID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		identity := identityFrom(c)
		if identity == nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		}

		var req signRequest
		req.Action = c.FormValue("action")
		req.Role = c.FormValue("role")
		if req.Action == "" && req.Role == "" {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}

		action, err := model.ParseAction(req.Action)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ACTION", err.Error())
		}
		role, ok := model.ParseModuleRole(req.Role)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ROLE", "unknown role")
		}

		var sig *model.SignatureRecord
		if fh, err := c.FormFile("artifact"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded artifact")
			}
			defer f.Close()
			sig, err = wfSvc.Sign(c.UserContext(), docID, action, role, identity.Roles, f, fh.Size)
			if err != nil {
				return writeWorkflowError(c, err)
			}
		} else {
			sig, err = wfSvc.Sign(c.UserContext(), docID, action, role, identity.Roles, nil, 0)
			if err != nil {
				return writeWorkflowError(c, err)
			}
		}
		return c.Status(fiber.StatusCreated).JSON(sig)
	})
}

// runWorkflowOp handles the shared shape of the workflow mutation routes.
func runWorkflowOp(c *fiber.Ctx, op func(ctx context.Context, docID string, req workflowRequest, roles []string) error) error {
	docID := c.Params("id")
	if _, err := uuid.Parse(docID); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}

	var req workflowRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
	}

	identity := identityFrom(c)
	var roles []string
	if identity != nil {
		roles = identity.Roles
	}

	if err := op(c.UserContext(), docID, req, roles); err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func identityFrom(c *fiber.Ctx) *model.UserIdentity {
	if id, ok := c.Locals(middleware.IdentityLocalKey).(*model.UserIdentity); ok {
		return id
	}
	return nil
}
