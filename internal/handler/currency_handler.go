package handler

import (
	"errors"
	"net/http"

	"converter-service/internal/service"
	"converter-service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CurrencyHandler struct {
	usecase usecase.ConverterUsecase
	logger  *logrus.Logger
}

func NewCurrencyHandler(usecase usecase.ConverterUsecase, logger *logrus.Logger) *CurrencyHandler {
	return &CurrencyHandler{
		usecase: usecase,
		logger:  logger,
	}
}

func (h *CurrencyHandler) Convert(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Invalid conversion body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.usecase.Convert(c.Request.Context(), *req.Amount, req.From, req.To)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CurrencyHandler) GetRate(c *gin.Context) {
	var q RateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters 'from' and 'to' must be ISO 4217 currency codes"})
		return
	}

	result, err := h.usecase.GetRate(c.Request.Context(), q.From, q.To)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CurrencyHandler) GetHistory(c *gin.Context) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter, must be an integer"})
		return
	}

	result, err := h.usecase.GetHistory(c.Request.Context(), q.Limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load conversion history")
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		history := []usecase.ConversionResponse{}
		if result != nil && result.History != nil {
			history = result.History
		}
		c.JSON(status, gin.H{"error": "conversion history is unavailable", "history": history})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CurrencyHandler) StartConversion(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	job, err := h.usecase.StartConversion(c.Request.Context(), *req.Amount, req.From, req.To)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Location", "/currency/convert/async/"+job.JobID)
	c.JSON(http.StatusAccepted, job)
}

func (h *CurrencyHandler) ConversionStatus(c *gin.Context) {
	job, err := h.usecase.ConversionStatus(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *CurrencyHandler) RefreshSnapshots(c *gin.Context) {
	result, err := h.usecase.RefreshSnapshots(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to record rate snapshots: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record rate snapshots"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CurrencyHandler) Health(c *gin.Context) {
	if err := h.usecase.Health(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "down"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "up"})
}

func (h *CurrencyHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversion job not found"})
	case errors.Is(err, service.ErrRateUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": service.RateUnavailableMessage})
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store unavailable"})
	default:
		h.logger.WithError(err).Error("Unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
