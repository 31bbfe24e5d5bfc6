package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/stackerlabs/stacker/internal/adapters/http/api"
	service "github.com/stackerlabs/stacker/internal/app"
	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/internal/session"
	"github.com/stackerlabs/stacker/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const testWallet = "0x1111111111111111111111111111111111111111"

// mockDeps implements api.Dependencies with scripted behavior.
type mockDeps struct {
	startErr   error
	submitRes  service.SubmitResult
	submitErr  error
	submitted  []service.SubmitRequest
	board      []types.Entry
	boardErr   error
	history    []types.HistoryEntry
	historyErr error
	operator   string
	chainID    int64
}

func (m *mockDeps) StartSession(_ context.Context, wallet string) (session.Session, string, error) {
	if m.startErr != nil {
		return session.Session{}, "", m.startErr
	}
	return session.Session{
		SessionID:     "sess-1",
		Player:        types.NormalizeWallet(wallet),
		StartUnixMs:   1000,
		MinDurationMs: 3000,
	}, "token-1", nil
}

func (m *mockDeps) SubmitRun(_ context.Context, req service.SubmitRequest) (service.SubmitResult, error) {
	m.submitted = append(m.submitted, req)
	if m.submitErr != nil {
		return service.SubmitResult{}, m.submitErr
	}
	return m.submitRes, nil
}

func (m *mockDeps) Leaderboard(_ context.Context, _ int) ([]types.Entry, error) {
	return m.board, m.boardErr
}

func (m *mockDeps) History(_ context.Context, _ string, _ int) ([]types.HistoryEntry, error) {
	return m.history, m.historyErr
}

func (m *mockDeps) ChainInfo() (string, int64) {
	return m.operator, m.chainID
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	srv := api.NewServer(deps, mockStats{})
	srv.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestStartSessionEndpoint(t *testing.T) {
	Convey("Given the API routes", t, func() {
		deps := &mockDeps{}
		mux := newTestMux(deps)

		Convey("POST /api/start-session mints a session", func() {
			rec := do(mux, http.MethodPost, "/api/start-session",
				`{"wallet":"`+testWallet+`"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				SessionID string `json:"sessionId"`
				Token     string `json:"token"`
				MinMs     int64  `json:"minMs"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.SessionID, ShouldEqual, "sess-1")
			So(resp.Token, ShouldEqual, "token-1")
			So(resp.MinMs, ShouldEqual, 3000)
		})

		Convey("A missing wallet is a 400", func() {
			rec := do(mux, http.MethodPost, "/api/start-session", `{}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A malformed body is a 400", func() {
			rec := do(mux, http.MethodPost, "/api/start-session", `{nope`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A rejected wallet is a 400", func() {
			deps.startErr = service.ErrInvalidInput
			rec := do(mux, http.MethodPost, "/api/start-session",
				`{"wallet":"nope"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET is not routed", func() {
			rec := do(mux, http.MethodGet, "/api/start-session", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSubmitEndpoint(t *testing.T) {
	validBody := `{"sessionId":"sess-1","token":"token-1","wallet":"` + testWallet + `","scoreDelta":42}`

	Convey("Given the API routes", t, func() {
		deps := &mockDeps{submitRes: service.SubmitResult{TxHash: "0xabc", LedgerPersisted: true}}
		mux := newTestMux(deps)

		Convey("A valid submission returns the transaction hash", func() {
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				OK              bool   `json:"ok"`
				TxHash          string `json:"txHash"`
				LedgerPersisted bool   `json:"ledgerPersisted"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.OK, ShouldBeTrue)
			So(resp.TxHash, ShouldEqual, "0xabc")
			So(resp.LedgerPersisted, ShouldBeTrue)

			So(deps.submitted, ShouldHaveLength, 1)
			So(deps.submitted[0].ScoreDelta, ShouldEqual, 42)
		})

		Convey("A half-persisted run reports ledgerPersisted=false", func() {
			deps.submitRes = service.SubmitResult{TxHash: "0xdef", LedgerPersisted: false}
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"ledgerPersisted":false`)
		})

		Convey("Missing fields are a 400", func() {
			rec := do(mux, http.MethodPost, "/api/submit", `{"wallet":"`+testWallet+`"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("An invalid session is a 401", func() {
			deps.submitErr = session.ErrInvalidSession
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			So(rec.Body.String(), ShouldContainSubstring, "invalid_session")
		})

		Convey("A too-short session is a 400", func() {
			deps.submitErr = session.ErrSessionTooShort
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "session_too_short")
		})

		Convey("A replayed session is a 400", func() {
			deps.submitErr = session.ErrSessionReplayed
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "session_replayed")
		})

		Convey("A suspicious score is a 400", func() {
			deps.submitErr = service.ErrSuspiciousScore
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "suspicious_score")
		})

		Convey("A chain failure is a 502", func() {
			deps.submitErr = service.ErrChainUnavailable
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusBadGateway)
			So(rec.Body.String(), ShouldContainSubstring, "chain_unavailable")
		})

		Convey("An unexpected failure is a 500", func() {
			deps.submitErr = errors.New("boom")
			rec := do(mux, http.MethodPost, "/api/submit", validBody)
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given the API routes", t, func() {
		deps := &mockDeps{board: []types.Entry{
			{Rank: 1, Wallet: testWallet, Username: "alice", TotalScore: 500},
		}}
		mux := newTestMux(deps)

		Convey("GET /api/leaderboard returns ranked entries", func() {
			rec := do(mux, http.MethodGet, "/api/leaderboard?limit=10", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				UpdatedAt int64         `json:"updatedAt"`
				Top       []types.Entry `json:"top"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.UpdatedAt, ShouldBeGreaterThan, 0)
			So(resp.Top, ShouldHaveLength, 1)
			So(resp.Top[0].Username, ShouldEqual, "alice")
		})

		Convey("The limit is optional", func() {
			rec := do(mux, http.MethodGet, "/api/leaderboard", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("A non-numeric limit is a 400", func() {
			rec := do(mux, http.MethodGet, "/api/leaderboard?limit=abc", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A limit above the cap is a 400", func() {
			rec := do(mux, http.MethodGet, "/api/leaderboard?limit=500", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("An empty board is an empty array, not null", func() {
			deps.board = nil
			rec := do(mux, http.MethodGet, "/api/leaderboard", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"top":[]`)
		})

		Convey("A store failure is a 500", func() {
			deps.boardErr = errors.New("store down")
			rec := do(mux, http.MethodGet, "/api/leaderboard", "")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestHistoryEndpoint(t *testing.T) {
	Convey("Given the API routes", t, func() {
		deps := &mockDeps{history: []types.HistoryEntry{
			{UnixMs: 2000, Score: 20, TxReference: "0x2"},
			{UnixMs: 1000, Score: 10, TxReference: "0x1"},
		}}
		mux := newTestMux(deps)

		Convey("GET /api/history returns the wallet's runs", func() {
			rec := do(mux, http.MethodGet, "/api/history?wallet="+testWallet, "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Wallet string               `json:"wallet"`
				Runs   []types.HistoryEntry `json:"runs"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Wallet, ShouldEqual, testWallet)
			So(resp.Runs, ShouldHaveLength, 2)
			So(resp.Runs[0].Score, ShouldEqual, 20)
		})

		Convey("A missing wallet is a 400", func() {
			rec := do(mux, http.MethodGet, "/api/history", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A malformed wallet is a 400", func() {
			deps.historyErr = types.ErrBadWallet
			rec := do(mux, http.MethodGet, "/api/history?wallet=nope", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "bad_wallet")
		})

		Convey("A bad limit is a 400", func() {
			rec := do(mux, http.MethodGet, "/api/history?wallet="+testWallet+"&limit=0", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealthAndStatsEndpoints(t *testing.T) {
	Convey("Given the API routes", t, func() {
		deps := &mockDeps{operator: "0xoperator", chainID: 10143}
		mux := newTestMux(deps)

		Convey("GET /healthz reports the chain identity", func() {
			rec := do(mux, http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				OK       bool   `json:"ok"`
				Operator string `json:"operator"`
				ChainID  int64  `json:"chainId"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.OK, ShouldBeTrue)
			So(resp.Operator, ShouldEqual, "0xoperator")
			So(resp.ChainID, ShouldEqual, 10143)
		})

		Convey("GET /stats returns the service stats", func() {
			rec := do(mux, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("GET /metrics serves the Prometheus registry", func() {
			rec := do(mux, http.MethodGet, "/metrics", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
