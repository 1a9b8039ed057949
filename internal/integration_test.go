package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"winery-tank-backend/config"
	"winery-tank-backend/internal/api"
	"winery-tank-backend/internal/db"
	"winery-tank-backend/internal/deposits"
	"winery-tank-backend/internal/notification"
	"winery-tank-backend/internal/store"
	"winery-tank-backend/internal/tank"
)

// upstream plays the winery backend, answering each call with the next
// scripted payload. A status other than 200 is returned as is.
type upstream struct {
	mu       sync.Mutex
	payloads []string
	statuses []int
	calls    int
	auth     []string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.auth = append(u.auth, r.Header.Get("Authorization"))
	i := u.calls
	if i >= len(u.payloads) {
		i = len(u.payloads) - 1
	}
	u.calls++
	if u.statuses[i] != http.StatusOK {
		w.WriteHeader(u.statuses[i])
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(u.payloads[i]))
}

func (u *upstream) lastAuth() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.auth[len(u.auth)-1]
}

type tanksBody struct {
	Tanks []tank.View `json:"tanks"`
	Stale bool        `json:"stale"`
}

func request(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestTankLifecycle follows a tank from in use to empty through the API:
// the list refresh, opening tanks, shipment clearing, the availability
// notification and the stale list served when the backend fails.
func TestTankLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(testDB))
	appStore := store.NewGormStore(testDB)

	backend := &upstream{
		payloads: []string{
			`[
				{"idDeposito": 1, "deposito": "Tanque 1", "conteudo": "Merlot", "idConteudo": 10,
				 "densidade": 1020, "temperatura": "18,5", "pressao": 0},
				{"idDeposito": 2, "deposito": "Tanque 2", "tempMostro": true}
			]`,
			`[
				{"idDeposito": 1, "deposito": "Tanque 1", "tempMostro": true},
				{"idDeposito": 2, "deposito": "Tanque 2", "tempMostro": false}
			]`,
			``,
		},
		statuses: []int{http.StatusOK, http.StatusOK, http.StatusBadGateway},
	}
	server := httptest.NewServer(backend)
	defer server.Close()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:      server.URL,
			DepositsPath: "/deposito/getAllDepositosWithInformations",
			Token:        "service-token",
			Timeout:      5 * time.Second,
		},
	}

	// The pool is not started so dispatched jobs stay on its channel.
	pool := notification.NewWorkerPool(4, appStore, &webpush.Options{})
	svc := deposits.NewService(cfg, deposits.NewClient(&cfg.Upstream), pool, nil)
	router := api.NewRouter(config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}, svc, appStore, nil)
	device := map[string]string{"X-Client-ID": "device-1"}

	// A shipment is in progress before the tanks are opened.
	w := request(t, router, http.MethodPost, "/api/shipments", `{"supplier":"Vinhedo Alto","variety":"Merlot","weightKg":900}`, device)
	require.Equal(t, http.StatusCreated, w.Code)

	// --- First refresh: tank 1 in use, tank 2 empty ---
	w = request(t, router, http.MethodGet, "/api/tanks", "", map[string]string{"Authorization": "Bearer user-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer user-token", backend.lastAuth())

	var list tanksBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.False(t, list.Stale)
	require.Len(t, list.Tanks, 2)
	assert.Equal(t, tank.StateInUse, list.Tanks[0].State)
	require.NotNil(t, list.Tanks[0].Readings)
	assert.Equal(t, 18.5, list.Tanks[0].Readings.Temperature)
	require.NotNil(t, list.Tanks[0].Readings.Pressure)
	assert.Equal(t, 0.0, *list.Tanks[0].Readings.Pressure)
	assert.Equal(t, tank.StateEmpty, list.Tanks[1].State)

	// Opening an in-use tank leaves the shipments alone.
	w = request(t, router, http.MethodPost, "/api/tanks/1/open", "", device)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"route":"/tank/[tank]"`)
	shipments, err := appStore.ListShipments(context.Background(), "device-1")
	require.NoError(t, err)
	assert.Len(t, shipments, 1)

	// Opening the empty tank menu clears them.
	w = request(t, router, http.MethodPost, "/api/tanks/2/open", "", device)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"route":"/(tankControl)/[emptyTank]","params":{"tank":"Tanque 2","depositId":2}}`, w.Body.String())
	shipments, err = appStore.ListShipments(context.Background(), "device-1")
	require.NoError(t, err)
	assert.Empty(t, shipments)

	// Follow tank 1 to be told when it is free.
	w = request(t, router, http.MethodPut, "/api/subscriptions",
		`{"endpoint":"https://push.example.com/send/abc","p256dh":"key","auth":"secret","subscribed_tanks":[1]}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// --- Second refresh: tank 1 emptied, tank 2 occupied ---
	w = request(t, router, http.MethodGet, "/api/tanks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer service-token", backend.lastAuth())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, tank.StateEmpty, list.Tanks[0].State)
	assert.Nil(t, list.Tanks[0].Content)
	assert.Equal(t, tank.StateOccupied, list.Tanks[1].State)

	select {
	case job := <-pool.Jobs():
		assert.Equal(t, notification.Job{DepositID: 1, Title: "Tanque 1"}, job)
	case <-time.After(time.Second):
		t.Fatal("expected an availability notification for tank 1")
	}
	subs, err := appStore.SubscriptionsForTank(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	// Tank 1 now offers the action menu.
	w = request(t, router, http.MethodPost, "/api/tanks/1/actions/AddBaseWine", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"route":"/(tankControl)/tank/addBaseWine/[addBaseWine]","params":{"tank":"Tanque 1","depositId":1}}`, w.Body.String())

	// --- Third refresh fails: the previous list is served as stale ---
	w = request(t, router, http.MethodGet, "/api/tanks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stale tanksBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stale))
	assert.True(t, stale.Stale)
	assert.Equal(t, list.Tanks, stale.Tanks)
}
