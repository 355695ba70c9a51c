package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/auth"
	"taskboard-api/domain"
)

const minPasswordLength = 8

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, authn Authenticator, sessions Sessions, logger *log.Logger, secureCookies bool) {
	e.Use(SessionMiddleware(sessions, secureCookies))

	e.POST("/api/auth/register", postRegister(store, logger))
	e.POST("/api/auth/login", postLogin(authn, sessions, logger, secureCookies))
	e.POST("/api/auth/logout", postLogout(secureCookies))
	e.GET("/api/auth/session", getSession())

	e.GET("/api/tasks", getTasks(store, logger))
	e.POST("/api/tasks", postTask(store, logger))
	e.PATCH("/api/tasks/:taskId", patchTask(store, logger))
	e.DELETE("/api/tasks/:taskId", deleteTask(store, logger))

	e.GET("/api/dashboard", getDashboard(store, logger))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, dst any, strict bool) error {
	lr := io.LimitReader(c.Request().Body, bodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(dst)
}

func postRegister(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req registerRequest
		if err := decodeBody(c, &req, false); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		addr := auth.NormalizeEmail(req.Email)
		if addr == "" || !strings.Contains(addr, "@") {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "a valid email is required"})
		}
		if len(req.Password) < minPasswordLength {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "password must be at least 8 characters"})
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			logger.WithField("op", "register").WithError(err).Error("password hashing failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}

		user := domain.User{
			ID:           uuid.NewString(),
			Email:        addr,
			Name:         strings.TrimSpace(req.Name),
			Role:         domain.RoleUser,
			PasswordHash: hash,
			CreatedAt:    time.Now().UnixMilli(),
		}
		if err := store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, domain.ErrEmailTaken) {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "email already registered"})
			}
			logger.WithFields(log.Fields{"op": "register", "email": addr}).WithError(err).Error("user creation failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}

		logger.WithFields(log.Fields{"op": "register", "user": user.ID}).Info("user registered")
		return c.JSON(http.StatusCreated, user.Summary())
	}
}

func postLogin(authn Authenticator, sessions Sessions, logger *log.Logger, secure bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req loginRequest
		if err := decodeBody(c, &req, false); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		identity, err := authn.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			// Storage trouble is logged separately but both failure classes
			// present identically, so account existence cannot be probed.
			if errors.Is(err, auth.ErrAuthUnavailable) {
				logger.WithField("op", "login").WithError(err).Error("authentication backend unavailable")
			}
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		}

		token, err := sessions.Issue(identity)
		if err != nil {
			logger.WithFields(log.Fields{"op": "login", "user": identity.ID}).WithError(err).Error("session issuance failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		setSessionCookie(c, token, secure)

		logger.WithFields(log.Fields{"op": "login", "user": identity.ID}).Info("user signed in")
		return c.JSON(http.StatusOK, identity)
	}
}

func postLogout(secure bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		clearSessionCookie(c, secure)
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func getSession() echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := claimsFromContext(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		}
		return c.JSON(http.StatusOK, sessionResponse{
			UserID:    claims.UserID,
			Role:      claims.Role,
			ExpiresAt: claims.ExpiresAt.UnixMilli(),
		})
	}
}

func getTasks(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		claims := claimsFromContext(c)
		metrics.ObserveAuth(time.Since(authStart))
		if claims == nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return err
		}

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx, claims.UserID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			logger.WithFields(log.Fields{"op": "list_tasks", "user": claims.UserID}).WithError(fetchErr).Error("task fetch failed")
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "error fetching tasks"})
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func postTask(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		claims := claimsFromContext(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		}

		var req createTaskRequest
		if err := decodeBody(c, &req, false); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "title is required"})
		}
		priority := req.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}
		if !domain.ValidPriority(priority) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		}

		now := time.Now().UnixMilli()
		task := domain.Task{
			ID:          uuid.NewString(),
			Title:       title,
			Description: req.Description,
			Status:      domain.StatusTodo,
			Priority:    priority,
			AssigneeID:  claims.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.InsertTask(ctx, task); err != nil {
			logger.WithFields(log.Fields{"op": "create_task", "user": claims.UserID}).WithError(err).Error("task creation failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "error creating task"})
		}
		publishTaskEvent(ctx, store, logger, task.ID, claims.UserID, domain.TaskCreated)

		return c.JSON(http.StatusCreated, task)
	}
}

func patchTask(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		claims := claimsFromContext(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		}
		taskID := c.Param("taskId")

		var patch domain.TaskPatch
		if err := decodeBody(c, &patch, true); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if err := patch.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}

		task, err := store.GetTask(ctx, taskID)
		if err != nil {
			logger.WithFields(log.Fields{"op": "update_task", "task": taskID}).WithError(err).Error("task lookup failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		if resp := denyResponse(c, claims, task); resp != nil {
			return resp
		}

		now := time.Now().UnixMilli()
		if err := store.UpdateTask(ctx, task.AssigneeID, task.ID, patch, now); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
			}
			logger.WithFields(log.Fields{"op": "update_task", "task": taskID, "user": claims.UserID}).WithError(err).Error("task update failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		publishTaskEvent(ctx, store, logger, task.ID, claims.UserID, domain.TaskUpdated)

		patch.Apply(task)
		task.UpdatedAt = now
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		claims := claimsFromContext(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		}
		taskID := c.Param("taskId")

		task, err := store.GetTask(ctx, taskID)
		if err != nil {
			logger.WithFields(log.Fields{"op": "delete_task", "task": taskID}).WithError(err).Error("task lookup failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		if resp := denyResponse(c, claims, task); resp != nil {
			return resp
		}

		if err := store.DeleteTask(ctx, task.AssigneeID, task.ID); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
			}
			logger.WithFields(log.Fields{"op": "delete_task", "task": taskID, "user": claims.UserID}).WithError(err).Error("task deletion failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		publishTaskEvent(ctx, store, logger, task.ID, claims.UserID, domain.TaskDeleted)

		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func getDashboard(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		claims := claimsFromContext(c)
		if claims == nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		}

		tasks, err := store.ListTasks(ctx, claims.UserID)
		if err != nil {
			logger.WithFields(log.Fields{"op": "dashboard", "user": claims.UserID}).WithError(err).Error("task fetch failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}

		return c.JSON(http.StatusOK, dashboardResponse{
			Stats:  domain.ComputeStats(tasks),
			Recent: domain.RecentTasks(tasks, 5),
		})
	}
}

// denyResponse translates a guard denial into the fixed 401/403/404 mapping.
// It returns nil when access is allowed.
func denyResponse(c echo.Context, claims *auth.Claims, task *domain.Task) error {
	switch auth.AuthorizeTaskAccess(claims, task) {
	case auth.DenyUnauthenticated:
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	case auth.DenyNotFound:
		return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
	case auth.DenyForbidden:
		return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	}
	return nil
}

// publishTaskEvent is best effort: a queue outage must not fail the request
// that already committed its write.
func publishTaskEvent(ctx context.Context, store Store, logger *log.Logger, taskID, userID, eventType string) {
	ev := domain.TaskEvent{
		TaskID: taskID,
		UserID: userID,
		Type:   eventType,
		Time:   time.Now().UnixMilli(),
	}
	if err := store.PublishTaskEvent(ctx, ev); err != nil {
		logger.WithFields(log.Fields{"op": "publish_event", "task": taskID, "type": eventType}).
			WithError(err).Warn("task event publish failed")
	}
}
