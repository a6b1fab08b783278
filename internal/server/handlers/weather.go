package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/city-weather/internal/presenter"
	"github.com/vzahanych/city-weather/internal/server/utils"
	"github.com/vzahanych/city-weather/internal/service"
	"github.com/vzahanych/city-weather/internal/weather"
	"go.uber.org/zap"
)

type WeatherHandler struct {
	service service.WeatherService
	logger  *zap.Logger
}

func NewWeatherHandler(svc service.WeatherService, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		service: svc,
		logger:  logger,
	}
}

func (h *WeatherHandler) GetWeather(c *gin.Context) {
	ctx := utils.GetContextFromGinContext(c)
	requestID := utils.GetRequestIDFromGinContext(c)

	reqLogger := h.logger.With(zap.String("request_id", requestID))

	var req WeatherRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		reqLogger.Warn("Invalid request parameters", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request parameters",
			Code:    CodeInvalidParams,
			Details: err.Error(),
		})
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		reqLogger.Warn("Request validation failed", zap.Int("errors", len(errs)))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:      "Invalid request parameters",
			Code:       CodeInvalidParams,
			Validation: errs,
		})
		return
	}

	reqLogger.Info("Processing weather request", zap.String("city", req.City))

	result := weather.NewResult(h.service.CurrentWeather(ctx, req.City))
	if !result.IsSuccess() {
		status, code := errorStatus(result.Err)
		reqLogger.Warn("Weather request failed",
			zap.String("city", req.City),
			zap.Stringer("kind", result.Err.Kind),
			zap.Int("status", status))
		_ = c.Error(result.Err)
		c.JSON(status, ErrorResponse{
			Error: result.Message(),
			Code:  code,
		})
		return
	}

	view := presenter.NewWeatherView(result.Info)
	reqLogger.Info("Weather request completed successfully",
		zap.String("city", view.City))

	c.JSON(http.StatusOK, view)
}

// errorStatus maps a client error to the response status. Upstream "not
// found" and "bad request" are passed through; anything else is the
// gateway's problem.
func errorStatus(err *weather.Error) (int, string) {
	switch err.Kind {
	case weather.KindRemote:
		switch err.StatusCode {
		case http.StatusNotFound, http.StatusBadRequest:
			return err.StatusCode, CodeRemoteError
		default:
			return http.StatusBadGateway, CodeRemoteError
		}
	case weather.KindMalformedURL:
		return http.StatusBadRequest, CodeMalformedRequest
	case weather.KindDecode:
		return http.StatusBadGateway, CodeDecodeError
	default:
		return http.StatusBadGateway, CodeUpstreamUnavailable
	}
}
