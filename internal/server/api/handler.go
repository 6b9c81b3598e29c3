// Package api is the HTTP surface of the table backend.
package api

import (
	"errors"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/events"
	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
	"github.com/dmitrijs2005/omnidesk/internal/server/store"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Store  store.Store
	Events events.Publisher
	Logger logging.Logger
	Now    func() time.Time
}

func (h *Handler) List(c *gin.Context) {
	table := c.Param("table")
	q, err := parseQuery(c.Request.URL.Query())
	if err != nil {
		h.fail(c, err)
		return
	}

	rows, err := h.Store.Select(c.Request.Context(), tenantOf(c), table, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Create accepts a single row or an array of rows. An array is stored
// atomically.
func (h *Handler) Create(c *gin.Context) {
	table := c.Param("table")

	var body any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch v := body.(type) {
	case map[string]any:
		row, err := h.Store.Insert(c.Request.Context(), tenantOf(c), table, remote.Row(v))
		if err != nil {
			h.fail(c, err)
			return
		}
		h.publish(c, table, events.OpInsert)
		c.JSON(http.StatusCreated, row)

	case []any:
		rows := make([]remote.Row, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "array items must be objects"})
				return
			}
			rows = append(rows, remote.Row(m))
		}
		created, err := h.Store.InsertMany(c.Request.Context(), tenantOf(c), table, rows)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.publish(c, table, events.OpInsert)
		c.JSON(http.StatusCreated, created)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be an object or an array"})
	}
}

func (h *Handler) Update(c *gin.Context) {
	table := c.Param("table")

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := h.Store.Update(c.Request.Context(), tenantOf(c), table, c.Param("id"), remote.Row(patch))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c, table, events.OpUpdate)
	c.JSON(http.StatusOK, row)
}

func (h *Handler) Delete(c *gin.Context) {
	table := c.Param("table")

	if err := h.Store.Delete(c.Request.Context(), tenantOf(c), table, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c, table, events.OpDelete)
	c.Status(http.StatusNoContent)
}

// publish announces a committed write. A failure is logged; the write
// itself has succeeded.
func (h *Handler) publish(c *gin.Context, table, op string) {
	if h.Events == nil {
		return
	}
	ev := events.Event{
		Origin:   c.GetHeader(common.OriginHeader),
		Table:    table,
		Op:       op,
		TenantID: tenantOf(c),
		At:       h.now(),
	}
	if err := h.Events.Publish(c.Request.Context(), ev); err != nil {
		h.log().Warn(c.Request.Context(), "publish event failed", "table", table, "op", op, "error", err)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log().Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) log() logging.Logger {
	if h.Logger == nil {
		return logging.Nop()
	}
	return h.Logger
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// parseQuery reads col=eq.value filters, order=col.asc|desc and limit=N.
func parseQuery(v map[string][]string) (remote.Query, error) {
	var q remote.Query
	for _, key := range slices.Sorted(maps.Keys(v)) {
		values := v[key]
		switch key {
		case "order":
			col, dir, _ := strings.Cut(values[0], ".")
			if col == "" || (dir != "" && dir != "asc" && dir != "desc") {
				return q, &common.ValidationError{Field: "order", Reason: "is invalid: " + values[0]}
			}
			q = q.OrderBy(col, dir == "desc")
		case "limit":
			n, err := strconv.Atoi(values[0])
			if err != nil || n < 0 {
				return q, &common.ValidationError{Field: "limit", Reason: "is invalid: " + values[0]}
			}
			q.Limit = n
		default:
			for _, val := range values {
				eq, ok := strings.CutPrefix(val, "eq.")
				if !ok {
					return q, &common.ValidationError{Field: key, Reason: "supports only eq. filters"}
				}
				q = q.And(key, eq)
			}
		}
	}
	return q, nil
}
