package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/usecase"
)

type TelemetryHandler struct {
	connections *usecase.ConnectionUsecase
	collector   *usecase.CollectorUsecase
	history     *usecase.HistoryUsecase
	scheduler   *usecase.Scheduler
	validate    *validator.Validate
}

func NewTelemetryHandler(
	connections *usecase.ConnectionUsecase,
	collector *usecase.CollectorUsecase,
	history *usecase.HistoryUsecase,
	scheduler *usecase.Scheduler,
) *TelemetryHandler {
	return &TelemetryHandler{
		connections: connections,
		collector:   collector,
		history:     history,
		scheduler:   scheduler,
		validate:    validator.New(),
	}
}

func (h *TelemetryHandler) Register(app *fiber.App) {
	conns := app.Group("/connections")
	conns.Post("/", h.CreateConnection)
	conns.Get("/", h.ListConnections)
	conns.Put("/:id", h.UpdateConnection)
	conns.Delete("/:id", h.DeleteConnection)

	group := conns.Group("/:id")
	group.Post("/collect", h.CollectNow)
	group.Post("/schedule/start", h.StartSchedule)
	group.Post("/schedule/stop", h.StopSchedule)
	group.Get("/schedule", h.ScheduleStatus)
	group.Get("/performance", h.QueryPerformance)
	group.Get("/tiers", h.TierStatus)
	group.Get("/cache-stats", h.CacheStats)
	group.Get("/settings", h.GetSettings)
	group.Put("/settings", h.UpdateSettings)
	group.Get("/logs", h.ListLogs)
	group.Delete("/logs", h.PurgeLogs)
	group.Get("/summaries", h.ListSummaries)
}

func (h *TelemetryHandler) connectionID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid connection id")
	}
	return id, nil
}

// mapError translates usecase sentinels into HTTP statuses. Anything else is
// a 500; tier failures never reach here because the cascade absorbs them.
func mapError(c *fiber.Ctx, err error) error {
	switch err {
	case usecase.ErrConnectionNotFound, usecase.ErrStatementNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case usecase.ErrInvalidSQLID:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

type createConnectionRequest struct {
	Name        string `json:"name" validate:"required"`
	Host        string `json:"host" validate:"required"`
	Port        int    `json:"port" validate:"required,min=1,max=65535"`
	ServiceName string `json:"service_name" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

func (h *TelemetryHandler) CreateConnection(c *fiber.Ctx) error {
	var req createConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	conn := &entity.OracleConnection{
		Name:        req.Name,
		Host:        req.Host,
		Port:        req.Port,
		ServiceName: req.ServiceName,
		Username:    req.Username,
		Password:    req.Password,
	}
	if err := h.connections.CreateConnection(c.Context(), conn); err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conn)
}

func (h *TelemetryHandler) ListConnections(c *fiber.Ctx) error {
	conns, err := h.connections.GetAllConnections(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": conns})
}

type updateConnectionRequest struct {
	Name        string `json:"name" validate:"required"`
	Host        string `json:"host" validate:"required"`
	Port        int    `json:"port" validate:"required,min=1,max=65535"`
	ServiceName string `json:"service_name" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password"` // empty keeps the stored password
}

func (h *TelemetryHandler) UpdateConnection(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}

	var req updateConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	conn := &entity.OracleConnection{
		Name:        req.Name,
		Host:        req.Host,
		Port:        req.Port,
		ServiceName: req.ServiceName,
		Username:    req.Username,
		Password:    req.Password,
	}
	if err := h.connections.UpdateConnection(c.Context(), id, conn); err != nil {
		return mapError(c, err)
	}
	return c.JSON(conn)
}

func (h *TelemetryHandler) DeleteConnection(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	_ = h.scheduler.Stop(id)
	if err := h.connections.DeleteConnection(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TelemetryHandler) CollectNow(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	result, err := h.collector.Collect(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(result)
}

func (h *TelemetryHandler) StartSchedule(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	if err := h.scheduler.Start(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"running": true})
}

func (h *TelemetryHandler) StopSchedule(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	if err := h.scheduler.Stop(id); err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"running": false})
}

func (h *TelemetryHandler) ScheduleStatus(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"running": h.scheduler.IsRunning(id)})
}

type performanceQuery struct {
	Date      string `validate:"required_without=SQLID,omitempty,datetime=2006-01-02"`
	StartTime string `validate:"omitempty,datetime=15:04"`
	EndTime   string `validate:"omitempty,datetime=15:04"`
	Sort      string `validate:"omitempty,oneof=elapsed_time cpu_time buffer_gets disk_reads executions"`
	SQLID     string
}

func (h *TelemetryHandler) QueryPerformance(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}

	q := performanceQuery{
		Date:      c.Query("date"),
		StartTime: c.Query("start_time"),
		EndTime:   c.Query("end_time"),
		Sort:      c.Query("sort"),
		SQLID:     c.Query("sql_id"),
	}
	if err := h.validate.Struct(q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.history.Query(c.Context(), usecase.QueryRequest{
		ConnectionID: id,
		Date:         q.Date,
		StartTime:    q.StartTime,
		EndTime:      q.EndTime,
		SortKey:      entity.SortKey(q.Sort),
		Limit:        c.QueryInt("limit"),
		SQLID:        q.SQLID,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(result)
}

func (h *TelemetryHandler) TierStatus(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	status, err := h.history.TierStatus(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(status)
}

func (h *TelemetryHandler) CacheStats(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	stats, err := h.history.CacheStats(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(stats)
}

func (h *TelemetryHandler) GetSettings(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	settings, err := h.collector.Settings(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(settings)
}

type settingsRequest struct {
	Enabled         bool    `json:"enabled"`
	IntervalMinutes int     `json:"interval_minutes" validate:"min=1,max=1440"`
	RetentionDays   int     `json:"retention_days" validate:"min=1,max=365"`
	MinExecutions   int64   `json:"min_executions" validate:"min=0"`
	MinElapsedMs    float64 `json:"min_elapsed_ms" validate:"min=0"`
	ExcludedSchemas string  `json:"excluded_schemas"`
	RowLimit        int     `json:"row_limit" validate:"min=1,max=5000"`
	CollectAllHours bool    `json:"collect_all_hours"`
	StartHour       int     `json:"start_hour" validate:"min=0,max=23"`
	EndHour         int     `json:"end_hour" validate:"min=0,max=23,gtefield=StartHour"`
}

func (h *TelemetryHandler) UpdateSettings(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}

	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	settings, err := h.collector.UpdateSettings(c.Context(), &entity.CollectionSettings{
		ConnectionID:    id,
		Enabled:         req.Enabled,
		IntervalMinutes: req.IntervalMinutes,
		RetentionDays:   req.RetentionDays,
		MinExecutions:   req.MinExecutions,
		MinElapsedMs:    req.MinElapsedMs,
		ExcludedSchemas: req.ExcludedSchemas,
		RowLimit:        req.RowLimit,
		CollectAllHours: req.CollectAllHours,
		StartHour:       req.StartHour,
		EndHour:         req.EndHour,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(settings)
}

func (h *TelemetryHandler) ListLogs(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	logs, err := h.collector.Logs(c.Context(), id, c.QueryInt("limit"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": logs})
}

func (h *TelemetryHandler) PurgeLogs(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	deleted, err := h.collector.PurgeLogs(c.Context(), id, c.QueryInt("older_than_days"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (h *TelemetryHandler) ListSummaries(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	summaries, err := h.collector.Summaries(c.Context(), id, c.QueryInt("limit"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"data": summaries})
}
