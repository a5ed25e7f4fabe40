package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/scheduler"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 3600
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.Annealing.InitialTemperature = 10000
	cfg.Annealing.CoolingRate = 0.9999
	cfg.Annealing.FinalTemperature = 0.0001
	cfg.Annealing.Seed = 42
	cfg.Annealing.LogEvery = 10000
	cfg.Annealing.Restarts = 1
	cfg.Annealing.LockExpiration = 600
	cfg.Redis.OperationExpiration = 5
	return cfg
}

// 不依赖数据库的请求，repository 为 nil 即可
func newTestHandler(t *testing.T, publisher MailPublisher) *Handler {
	t.Helper()

	h, err := NewHandler(testConfig(), nil, publisher, nil)
	require.NoError(t, err)
	h.RegisterRoutes()

	return h
}

func signToken(t *testing.T, role domain.UserRole, secret string) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   "1",
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func serve(h *Handler, req *http.Request) (*httptest.ResponseRecorder, Response) {
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	var resp Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestAuthRequiresCookie(t *testing.T) {
	h := newTestHandler(t, nil)

	rec, resp := serve(h, httptest.NewRequest(http.MethodGet, "/my-info/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, resp.Success)
	require.Equal(t, "用户未登录", resp.Message)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/crew-plans/", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: signToken(t, domain.UserRoleAdmin, "another-secret")})

	_, resp := serve(h, req)
	require.False(t, resp.Success)
	require.Equal(t, "无效的令牌", resp.Message)
}

func TestRequiredRole(t *testing.T) {
	h := newTestHandler(t, nil)

	// 排班员不能管理用户
	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: signToken(t, domain.UserRolePlanner, testSecret)})

	_, resp := serve(h, req)
	require.False(t, resp.Success)
	require.Equal(t, "权限不足", resp.Message)
}

func TestCrewPlanInvalidID(t *testing.T) {
	h := newTestHandler(t, nil)

	for _, path := range []string{"/crew-plans/abc/", "/crew-plans/0/rangers/", "/crew-plans/-3/assignment/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: signToken(t, domain.UserRolePlanner, testSecret)})

		_, resp := serve(h, req)
		require.False(t, resp.Success, path)
		require.Equal(t, "分队计划ID无效", resp.Message, path)
	}
}

func TestLoginBadRequest(t *testing.T) {
	h := newTestHandler(t, nil)

	// 无法解析的请求体
	_, resp := serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{bad")))
	require.False(t, resp.Success)
	require.Equal(t, errInvalidJSON.Error(), resp.Message)

	// 未知字段
	_, resp = serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a","password":"b","extra":1}`)))
	require.False(t, resp.Success)
	require.Equal(t, errInvalidJSON.Error(), resp.Message)

	// 校验错误会被翻译成中文
	_, resp = serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"b"}`)))
	require.False(t, resp.Success)
	require.Equal(t, "Username为必填字段", resp.Message)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, nil)

	// 先产生一次请求，保证计数器有数据
	serve(h, httptest.NewRequest(http.MethodGet, "/my-info/", nil))

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "crew_planner_http_requests_total")
}

type recordingPublisher struct {
	key  string
	msgs []amqp.Publishing
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.key = key
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestPublishMail(t *testing.T) {
	publisher := &recordingPublisher{}
	h := newTestHandler(t, publisher)

	err := h.publishMail(domain.MailMessage{
		Type: mailTypeAssignmentDone,
		To:   "planner@example.com",
		Data: domain.AssignmentReadyMailData{FullName: "张三", CrewPlanName: "2026 夏季", Cost: 120, CrewCount: 4},
	})
	require.NoError(t, err)
	require.Equal(t, "email_queue", publisher.key)
	require.Len(t, publisher.msgs, 1)
	require.Equal(t, "application/json", publisher.msgs[0].ContentType)

	var msg struct {
		Type string                         `json:"type"`
		To   string                         `json:"to"`
		Data domain.AssignmentReadyMailData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(publisher.msgs[0].Body, &msg))
	require.Equal(t, "assignment_ready", msg.Type)
	require.Equal(t, "planner@example.com", msg.To)
	require.Equal(t, "2026 夏季", msg.Data.CrewPlanName)
	require.EqualValues(t, 120, msg.Data.Cost)
}

func TestAnnealingParameters(t *testing.T) {
	h := newTestHandler(t, nil)

	// 没有给出参数时使用配置
	p, restarts := h.annealingParameters(&generateRequest{})
	require.Equal(t, 10000.0, p.InitialTemperature)
	require.Equal(t, 0.9999, p.CoolingRate)
	require.Equal(t, 0.0001, p.FinalTemperature)
	require.EqualValues(t, 42, p.Seed)
	require.Equal(t, 1, restarts)

	rate := 0.99
	seed := int64(7)
	n := 4
	p, restarts = h.annealingParameters(&generateRequest{CoolingRate: &rate, Seed: &seed, Restarts: &n})
	require.Equal(t, 0.99, p.CoolingRate)
	require.EqualValues(t, 7, p.Seed)
	require.Equal(t, 4, restarts)

	// 种子为 0 时使用当前时间
	h.config.Annealing.Seed = 0
	p, _ = h.annealingParameters(&generateRequest{})
	require.NotZero(t, p.Seed)
}

func TestGenerateRequestValidation(t *testing.T) {
	h := newTestHandler(t, nil)

	rate := 1.5
	require.Error(t, h.validate.Struct(&generateRequest{CoolingRate: &rate}))

	restarts := 0
	require.Error(t, h.validate.Struct(&generateRequest{Restarts: &restarts}))

	rate = 0.95
	restarts = 8
	require.NoError(t, h.validate.Struct(&generateRequest{CoolingRate: &rate, Restarts: &restarts}))
}

func testRangers() []*domain.Ranger {
	names := []string{"L0", "L1", "M0", "M1", "M2", "M3", "M4", "M5"}
	rangers := make([]*domain.Ranger, len(names))
	for i, name := range names {
		role := domain.RangerRoleMember
		if i < 2 {
			role = domain.RangerRoleLeader
		}
		rangers[i] = &domain.Ranger{
			ID:                   int64(100 + i),
			Name:                 name,
			Role:                 role,
			Gender:               "F",
			YearsOfExperience:    2,
			FitnessCertification: domain.NationalCertification,
		}
	}
	return rangers
}

func TestNewCrewAssignmentResult(t *testing.T) {
	season, err := calendar.NewSeason("May 1", "August 31")
	require.NoError(t, err)

	rangers := testRangers()
	rs, err := roster.New(season, rangers)
	require.NoError(t, err)

	plan := &domain.CrewPlan{ID: 9, Name: "测试计划"}
	params := scheduler.DefaultParameters()
	res := &scheduler.Result{
		Assignment: roster.Assignment{1, 2, 1, 1, 1, 2, 2, 2},
		Cost:       35,
		Iterations: 184198,
		Seed:       5,
		Breakdown:  &scheduler.Breakdown{Preference: 20, Understaffing: 10, Experience: 5},
	}

	result := newCrewAssignmentResult(plan, rs, params, res)
	require.EqualValues(t, 9, result.CrewPlanID)
	require.EqualValues(t, 35, result.Cost)
	require.EqualValues(t, 184198, result.Iterations)
	require.EqualValues(t, 5, result.Seed)
	require.Equal(t, params.CoolingRate, result.CoolingRate)
	require.Equal(t, 20.0, result.Breakdown.Preference)
	require.Equal(t, 5.0, result.Breakdown.Experience)
	require.Equal(t, []domain.CrewAssignmentCrew{
		{CrewID: 1, RangerIDs: []int64{100, 102, 103, 104}},
		{CrewID: 2, RangerIDs: []int64{101, 105, 106, 107}},
	}, result.Crews)

	// 再换回与名单对应的分队编号
	crewOf := crewsByRanger(rangers, result)
	require.Equal(t, []int{1, 2, 1, 1, 1, 2, 2, 2}, crewOf)

	// 方案之外的队员没有分队
	extra := append(rangers, &domain.Ranger{ID: 999, Name: "新人"})
	require.Equal(t, 0, crewsByRanger(extra, result)[len(extra)-1])
}

func TestGeneratingLockKey(t *testing.T) {
	require.Equal(t, "crew_plan_"+strconv.Itoa(12)+"_generating", generatingLockKey(12))
}

func TestGeneratingLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h, err := NewHandler(testConfig(), nil, nil, rdb)
	require.NoError(t, err)
	ctx := context.Background()

	first, locked, err := h.acquireGeneratingLock(ctx, 7, "alice")
	require.NoError(t, err)
	require.True(t, locked)

	// 同一个计划不能同时生成两次，其他计划不受影响
	_, locked, err = h.acquireGeneratingLock(ctx, 7, "bob")
	require.NoError(t, err)
	require.False(t, locked)
	_, locked, err = h.acquireGeneratingLock(ctx, 8, "bob")
	require.NoError(t, err)
	require.True(t, locked)

	// 第一次生成超时，锁过期后被另一个请求获得
	mr.FastForward(601 * time.Second)
	second, locked, err := h.acquireGeneratingLock(ctx, 7, "bob")
	require.NoError(t, err)
	require.True(t, locked)
	require.NotEqual(t, first, second)

	// 超时的请求结束时不能删除别人的锁
	released, err := h.releaseGeneratingLock(ctx, 7, first)
	require.NoError(t, err)
	require.False(t, released)
	value, err := mr.Get(generatingLockKey(7))
	require.NoError(t, err)
	require.Equal(t, second, value)

	released, err = h.releaseGeneratingLock(ctx, 7, second)
	require.NoError(t, err)
	require.True(t, released)
	require.False(t, mr.Exists(generatingLockKey(7)))
}

func TestReadOptionalAndValidate(t *testing.T) {
	h := newTestHandler(t, nil)

	// chunked 编码的空请求体没有 Content-Length
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	req.ContentLength = -1
	rec := httptest.NewRecorder()

	var body generateRequest
	require.True(t, h.readOptionalAndValidate(rec, req, &body))
	require.Nil(t, body.CoolingRate)
	require.Nil(t, body.Restarts)
	require.Zero(t, rec.Body.Len())

	// 有内容时照常解析和校验
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"restarts":4}`))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	body = generateRequest{}
	require.True(t, h.readOptionalAndValidate(rec, req, &body))
	require.Equal(t, 4, *body.Restarts)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"coolingRate":1.5}`))
	rec = httptest.NewRecorder()
	body = generateRequest{}
	require.False(t, h.readOptionalAndValidate(rec, req, &body))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)

	// 必须有请求体的接口仍然拒绝空请求体
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	rec = httptest.NewRecorder()
	require.False(t, h.readAndValidate(rec, req, &body))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, errEmptyBody.Error(), resp.Message)
}
