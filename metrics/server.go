// =================================================================================
//
//			fox-ambient - https://www.foxhollow.cc/projects/fox-audio/
//
//		 Fox Ambient is a small hearing assistant that routes the microphone
//	  through a light processing chain and straight back out to the speakers
//
//		 Copyright (c) 2024 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fox-ambient/controller"
)

// Server is the local HTTP surface: prometheus scrape endpoint plus a small
// remote control API that performs the same transitions as the UI.
type Server struct {
	echo   *echo.Echo
	ctrl   *controller.Controller
	listen string
}

type gainRequest struct {
	Value int `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(listen string, ctrl *controller.Controller, registry *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	server := &Server{
		echo:   e,
		ctrl:   ctrl,
		listen: listen,
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := e.Group("/api/v1")
	api.GET("/status", server.getStatus)
	api.POST("/start", server.postStart)
	api.POST("/stop", server.postStop)
	api.POST("/toggle/:option", server.postToggle)
	api.PUT("/gain/:stage", server.putGain)

	return server
}

func (server *Server) Handler() http.Handler {
	return server.echo
}

// Start serves in the background until Shutdown is called.
func (server *Server) Start() {
	go func() {
		slog.Info("HTTP server listening on " + server.listen)

		if err := server.echo.Start(server.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped: " + err.Error())
		}
	}()
}

func (server *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := server.echo.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown: " + err.Error())
	}
}

func (server *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, server.ctrl.Snapshot())
}

func (server *Server) postStart(c echo.Context) error {
	err := server.ctrl.Start(c.Request().Context())

	switch {
	case err == nil:
		return c.JSON(http.StatusOK, server.ctrl.Snapshot())
	case errors.Is(err, controller.ErrBusy), errors.Is(err, controller.ErrStartCancelled):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, controller.ErrClosed):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusBadGateway, errorResponse{Error: controller.UserMessage(err)})
}

func (server *Server) postStop(c echo.Context) error {
	server.ctrl.Stop()
	return c.JSON(http.StatusOK, server.ctrl.Snapshot())
}

func (server *Server) postToggle(c echo.Context) error {
	switch c.Param("option") {
	case "echo":
		server.ctrl.ToggleEchoCancel()
	case "noise":
		server.ctrl.ToggleNoiseSuppress()
	case "autogain":
		server.ctrl.ToggleAutoGain()
	case "latency":
		server.ctrl.CycleLatencyMode()
	default:
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown option " + c.Param("option")})
	}

	return c.JSON(http.StatusOK, server.ctrl.Snapshot())
}

func (server *Server) putGain(c echo.Context) error {
	var req gainRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	var value int
	switch c.Param("stage") {
	case "mic":
		value = server.ctrl.SetMicGain(req.Value)
	case "volume":
		value = server.ctrl.SetOutputVolume(req.Value)
	default:
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown gain stage " + c.Param("stage")})
	}

	c.Response().Header().Set("X-Applied-Value", strconv.Itoa(value))
	return c.JSON(http.StatusOK, server.ctrl.Snapshot())
}
