package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/stackerlabs/stacker/internal/adapters/http/api"
)

func TestCORSPolicy(t *testing.T) {
	Convey("Given a policy with configured origins", t, func() {
		policy := api.NewCORSPolicy([]string{"https://stacker.example.org", " https://game.example.org/ "})

		Convey("Then listed origins are allowed", func() {
			So(policy.Allowed("https://stacker.example.org"), ShouldBeTrue)
			So(policy.Allowed("https://game.example.org"), ShouldBeTrue)
		})

		Convey("Then unlisted origins are rejected", func() {
			So(policy.Allowed("https://evil.example.org"), ShouldBeFalse)
		})

		Convey("Then non-browser requests without an origin pass", func() {
			So(policy.Allowed(""), ShouldBeTrue)
		})

		Convey("Then local dev servers always pass", func() {
			So(policy.Allowed("http://localhost:5173"), ShouldBeTrue)
			So(policy.Allowed("http://127.0.0.1:3000"), ShouldBeTrue)
		})
	})

	Convey("Given a policy with no configured origins", t, func() {
		policy := api.NewCORSPolicy(nil)

		Convey("Then every origin is allowed", func() {
			So(policy.Allowed("https://anywhere.example.org"), ShouldBeTrue)
		})
	})
}

func TestCORSMiddleware(t *testing.T) {
	Convey("Given a CORS-wrapped handler", t, func() {
		inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		policy := api.NewCORSPolicy([]string{"https://stacker.example.org"})
		handler := api.CORS(policy, inner)

		Convey("When a listed origin sends a request", func() {
			req := httptest.NewRequest("GET", "/api/leaderboard", http.NoBody)
			req.Header.Set("Origin", "https://stacker.example.org")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://stacker.example.org")
			So(rec.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, "POST")
		})

		Convey("When an unlisted origin sends a request", func() {
			req := httptest.NewRequest("GET", "/api/leaderboard", http.NoBody)
			req.Header.Set("Origin", "https://evil.example.org")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When a preflight request arrives", func() {
			req := httptest.NewRequest("OPTIONS", "/api/submit", http.NoBody)
			req.Header.Set("Origin", "https://stacker.example.org")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusNoContent)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://stacker.example.org")
		})

		Convey("When a request has no origin header", func() {
			req := httptest.NewRequest("GET", "/healthz", http.NoBody)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
		})
	})
}
