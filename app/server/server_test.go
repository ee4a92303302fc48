package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"film-resolver/app/auth"
	"film-resolver/app/config"
	"film-resolver/app/logger"
	"film-resolver/app/service"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	log := logger.NewNop()
	svc := service.NewReconcileService(cfg, log)
	t.Cleanup(svc.Close)

	token, err := auth.NewJWTService(cfg).GenerateToken("tester")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return New(cfg, svc, log), token
}

func do(t *testing.T, s *Server, method, path, token, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.gin.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("解析响应失败：%v, body=%s", err, rec.Body.String())
		}
	}
	return rec.Code, env
}

func TestHealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t)
	code, env := do(t, s, http.MethodGet, "/api/health", "", "")
	if code != http.StatusOK || env.Code != 0 {
		t.Fatalf("code=%d env=%+v", code, env)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/api/reconcile", "/api/classify", "/api/score"} {
		code, env := do(t, s, http.MethodPost, path, "", "{}")
		if code != http.StatusUnauthorized || env.Code != 401 {
			t.Fatalf("%s: code=%d env=%+v", path, code, env)
		}
		code, _ = do(t, s, http.MethodPost, path, "not-a-token", "{}")
		if code != http.StatusUnauthorized {
			t.Fatalf("%s: 无效令牌 code=%d", path, code)
		}
	}
}

func TestClassifyEndpoint(t *testing.T) {
	s, token := newTestServer(t)
	code, env := do(t, s, http.MethodPost, "/api/classify", token, `{"urls":["magnet:?xt=urn:btih:abc","https://pan.baidu.com/s/1x"]}`)
	if code != http.StatusOK || env.Code != 0 {
		t.Fatalf("code=%d env=%+v", code, env)
	}
	var links []struct {
		Protocol string `json:"protocol"`
	}
	if err := json.Unmarshal(env.Data, &links); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(links) != 2 || links[0].Protocol != "magnet" || links[1].Protocol != "pan" {
		t.Fatalf("links=%+v", links)
	}

	code, _ = do(t, s, http.MethodPost, "/api/classify", token, `{"urls":[]}`)
	if code != http.StatusBadRequest {
		t.Fatalf("空列表应返回 400，实际 %d", code)
	}
}

func TestScoreEndpoint(t *testing.T) {
	s, token := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/score", token, `{"ext":".mp4","subtype":"movie","durations":[120],"size":2304000000}`)
	if code != http.StatusOK {
		t.Fatalf("code=%d env=%+v", code, env)
	}
	var score struct {
		Value     float64 `json:"value"`
		Qualified bool    `json:"qualified"`
	}
	if err := json.Unmarshal(env.Data, &score); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !score.Qualified || score.Value <= 0 {
		t.Fatalf("score=%+v", score)
	}

	code, env = do(t, s, http.MethodPost, "/api/score", token, `{"ext":".txt","subtype":"movie"}`)
	if code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	_ = json.Unmarshal(env.Data, &score)
	if score.Qualified {
		t.Fatalf("非视频扩展名应被淘汰")
	}

	code, _ = do(t, s, http.MethodPost, "/api/score", token, `{"subtype":"anime"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("未知类型应返回 400，实际 %d", code)
	}
}

func TestReconcileEndpoint(t *testing.T) {
	s, token := newTestServer(t)

	job := `{"id":"m1","target":{"title":"电影","subtype":"movie","durations":[120]},
		"candidates":[{"url":"ed2k://|file|Movie.2024.mkv|2304000000|ABCDEF|/","remark":"高清"}]}`
	code, env := do(t, s, http.MethodPost, "/api/reconcile", token, job)
	if code != http.StatusOK || env.Code != 0 {
		t.Fatalf("code=%d env=%+v", code, env)
	}
	var outcome struct {
		JobID  string `json:"job_id"`
		Result struct {
			Best *struct {
				Source string `json:"source"`
			} `json:"best"`
		} `json:"result"`
	}
	if err := json.Unmarshal(env.Data, &outcome); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if outcome.JobID != "m1" || outcome.Result.Best == nil {
		t.Fatalf("outcome=%+v", outcome)
	}

	code, env = do(t, s, http.MethodPost, "/api/reconcile", token, `{"target":{"title":"","subtype":"series","episode_count":0}}`)
	if code != http.StatusBadRequest || env.Code != 400 {
		t.Fatalf("无效任务应返回 400，code=%d env=%+v", code, env)
	}
}

func TestRefreshRejectsFreshToken(t *testing.T) {
	s, token := newTestServer(t)
	code, _ := do(t, s, http.MethodPost, "/api/auth/refresh", token, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("有效期充足的令牌不应刷新，code=%d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.gin.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
}
