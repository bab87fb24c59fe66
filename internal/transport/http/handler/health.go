package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Counter reports the number of passages in a collection.
type Counter interface {
	Count(ctx context.Context, name string) (int, error)
}

type HealthHandler struct {
	store      Counter
	collection string
	startedAt  time.Time
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(store Counter, collection string, startedAt time.Time) *HealthHandler {
	return &HealthHandler{store: store, collection: collection, startedAt: startedAt}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storeStatus := dependencyStatus{OK: true}
	passages, err := h.store.Count(ctx, h.collection)
	if err != nil {
		storeStatus = dependencyStatus{OK: false, Message: err.Error()}
	}

	statusCode := http.StatusOK
	if !storeStatus.OK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"collection": h.collection,
		"passages":   passages,
		"uptime_sec": int(time.Since(h.startedAt).Seconds()),
		"dependencies": gin.H{
			"vector_store": storeStatus,
		},
	})
}
