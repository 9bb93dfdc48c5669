package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/guestrank/internal/app"
	"github.com/okian/guestrank/internal/config"
)

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given a started in-memory service", t, func() {
		cfg := config.New()
		cfg.Addr = ":0"
		cfg.ScoringLatencyMinMS, cfg.ScoringLatencyMaxMS = 0, 0

		svc := app.New(app.OptionsFromConfig(cfg)...)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		srv := newHTTPServer(cfg, svc, nil)

		convey.Convey("Then the server carries the configured address and timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.WriteTimeout, convey.ShouldEqual, cfg.BatchTimeout()+writeGrace)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("When a guest is stored and analysed through the handler", func() {
			put := httptest.NewRecorder()
			srv.Handler.ServeHTTP(put, httptest.NewRequest(http.MethodPut, "/guests/g1",
				strings.NewReader(`{"first_name":"Ada","company":"Acme","job_title":"CEO"}`)))

			first := httptest.NewRecorder()
			srv.Handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/guests/g1/importance", http.NoBody))
			second := httptest.NewRecorder()
			srv.Handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/guests/g1/importance", http.NoBody))

			convey.Convey("Then the second call is served from the cache", func() {
				convey.So(put.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(first.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(first.Body.String(), convey.ShouldContainSubstring, `"reason":"missing"`)
				convey.So(second.Body.String(), convey.ShouldContainSubstring, `"reason":"hit"`)
			})
		})

		convey.Convey("When requesting the docs and health routes", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/healthz"} {
				w := httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestRunConfigError(t *testing.T) {
	convey.Convey("Given an invalid store in the environment", t, func() {
		t.Setenv("GUESTRANK_STORE", "cassandra")

		convey.Convey("When running", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := run(ctx)

			convey.Convey("Then configuration loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "load config")
			})
		})
	})
}
