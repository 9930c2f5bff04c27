package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solarmon/solarmon/pkg/apiclient"
	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, mux *http.ServeMux) (*API, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := session.NewMemory()
	require.NoError(t, store.Set(context.Background(), session.Session, session.KeyToken, "tok"))
	c, err := apiclient.New(store, apiclient.Options{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
	})
	require.NoError(t, err)
	return New(c), store
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
		err  bool
	}{
		{"Array", `[1,2,3]`, []int{1, 2, 3}, false},
		{"Page", `{"content":[4,5],"totalPages":1}`, []int{4, 5}, false},
		{"PageWithoutContent", `{"totalPages":0}`, []int{}, false},
		{"Null", `null`, []int{}, false},
		{"Empty", ``, []int{}, false},
		{"EmptyArray", ` [] `, []int{}, false},
		{"Scalar", `"nope"`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeList[int](json.RawMessage(tt.raw))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePage(t *testing.T) {
	p, err := decodePage[int](json.RawMessage(`[7,8]`))
	require.NoError(t, err)
	assert.Equal(t, types.Page[int]{Content: []int{7, 8}, TotalPages: 1, TotalElements: 2, Size: 2}, p)

	p, err = decodePage[int](json.RawMessage(`{"content":[1],"totalPages":3,"totalElements":21,"size":10,"number":2}`))
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.Number)
	assert.Equal(t, []int{1}, p.Content)
}

func TestReadsNormalizeFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})
	a, _ := newTestAPI(t, mux)
	ctx := context.Background()

	assert.Equal(t, []types.EnergyReading{}, a.Energy.RecentReadings(ctx, 1, 0))
	assert.Nil(t, a.Energy.InstallationDashboard(ctx, 1))
	assert.Zero(t, a.Energy.AverageEfficiency(ctx, 1))

	p := a.Payments.History(ctx, 2, 5)
	assert.Equal(t, types.EmptyPage[types.Payment](2, 5), p)

	m := a.Payments.MethodsForCustomer(ctx, 1)
	assert.NotNil(t, m.Methods)
	assert.Empty(t, m.Methods)

	assert.Equal(t, []types.TamperEvent{}, a.Security.InstallationAlerts(ctx, 1))
	assert.False(t, a.Auth.CheckEmail(ctx, "a@b.c"))
	assert.Empty(t, a.ServiceControl.CommandStatusCounts(ctx))
}

func TestWritesPropagate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments/make-payment", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "card declined"})
	})
	a, _ := newTestAPI(t, mux)

	_, err := a.Payments.MakePayment(context.Background(), types.PaymentRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to make payment")
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))
	assert.Equal(t, "card declined", apiclient.Message(err))
}

func TestInstallationsList(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  int
		total int
	}{
		{"Array", `[{"id":1},{"id":2}]`, 2, 2},
		{"Page", `{"content":[{"id":1}],"totalElements":9,"totalPages":9}`, 1, 9},
		{"Overview", `{"recentlyActiveInstallations":[{"id":1},{"id":2},{"id":3}],"totalActiveInstallations":40}`, 3, 40},
		{"OverviewWithoutList", `{"totalActiveInstallations":4}`, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /monitoring/installations/overview", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "0", r.URL.Query().Get("page"))
				assert.Equal(t, "10", r.URL.Query().Get("size"))
				io.WriteString(w, tt.body)
			})
			a, _ := newTestAPI(t, mux)
			p := a.Installations.List(context.Background(), ListFilter{})
			assert.Len(t, p.Content, tt.want)
			assert.Equal(t, tt.total, p.TotalElements)
		})
	}
}

func TestAverageEfficiency(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /monitoring/dashboard/installation/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"currentEfficiencyPercentage": 55.5})
	})
	readings := `[
		{"powerGenerationWatts":500,"powerConsumptionWatts":1000},
		{"powerGenerationWatts":3000,"powerConsumptionWatts":1000},
		{"powerGenerationWatts":0,"powerConsumptionWatts":1000}
	]`
	mux.HandleFunc("GET /monitoring/readings/recent/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30", r.URL.Query().Get("limit"))
		io.WriteString(w, readings)
	})
	a, _ := newTestAPI(t, mux)
	// (50 + 100 capped) / 2
	assert.Equal(t, 75.0, a.Energy.AverageEfficiency(context.Background(), 7))

	readings = `[]`
	assert.Equal(t, 55.5, a.Energy.AverageEfficiency(context.Background(), 7))
}

func TestCurrentStatus(t *testing.T) {
	t.Run("NoStatusYet", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/service/status/3", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "No active service status found for installation 3"})
		})
		a, _ := newTestAPI(t, mux)
		st, err := a.ServiceControl.CurrentStatus(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, types.ServicePending, st.Status)
		assert.Equal(t, "3", st.InstallationID)
		assert.True(t, st.Active)
	})

	t.Run("OtherError", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/service/status/3", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "database down"})
		})
		a, _ := newTestAPI(t, mux)
		_, err := a.ServiceControl.CurrentStatus(context.Background(), 3)
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, apiclient.StatusCode(err))
	})
}

func TestUpdateStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/service/status/4", func(w http.ResponseWriter, r *http.Request) {
		var body types.ServiceStatusUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.StatusReason == "fail" {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "transition not allowed"})
			return
		}
		writeJSON(w, http.StatusOK, types.ServiceStatus{Status: body.Status, UpdatedBy: body.UpdatedBy})
	})
	a, _ := newTestAPI(t, mux)
	ctx := context.Background()

	st, err := a.ServiceControl.UpdateStatus(ctx, 4, types.ServiceStatusUpdate{Status: " suspended_maintenance "})
	require.NoError(t, err)
	assert.Equal(t, types.ServiceSuspendedMaintenance, st.Status)
	assert.Equal(t, "SYSTEM", st.UpdatedBy)

	_, err = a.ServiceControl.UpdateStatus(ctx, 4, types.ServiceStatusUpdate{Status: "UNKNOWN"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = a.ServiceControl.UpdateStatus(ctx, 4, types.ServiceStatusUpdate{Status: "ACTIVE", StatusReason: "fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update service status: transition not allowed")
}

func TestBatchStatuses(t *testing.T) {
	t.Run("NoNumericIDs", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s", r.URL.Path)
		})
		a, _ := newTestAPI(t, mux)
		assert.Equal(t, []types.ServiceStatus{}, a.ServiceControl.BatchStatuses(context.Background(), []string{"abc", ""}))
	})

	t.Run("Success", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/service/status/batch", func(w http.ResponseWriter, r *http.Request) {
			var ids []int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
			assert.Equal(t, []int64{1, 2}, ids)
			writeJSON(w, http.StatusOK, []types.ServiceStatus{
				{InstallationID: "1", Status: types.ServiceActive},
				{InstallationID: "2", Status: types.ServicePending},
			})
		})
		a, _ := newTestAPI(t, mux)
		got := a.ServiceControl.BatchStatuses(context.Background(), []string{"1", "x", "2"})
		assert.Len(t, got, 2)
	})

	t.Run("Failure", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/service/status/batch", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		a, _ := newTestAPI(t, mux)
		got := a.ServiceControl.BatchStatuses(context.Background(), []string{"5", "6"})
		require.Len(t, got, 2)
		for i, want := range []string{"5", "6"} {
			assert.Equal(t, want, got[i].InstallationID)
			assert.Equal(t, types.ServiceUnknown, got[i].Status)
			assert.Equal(t, "Installation #"+want, got[i].InstallationName)
			assert.Equal(t, "Could not retrieve status", got[i].StatusReason)
		}
	})
}

func TestMonitoringStatusFallback(t *testing.T) {
	fail := false
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/security/detection/installations/9/status", func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"isMonitoring":true}`)
	})
	a, _ := newTestAPI(t, mux)
	ctx := context.Background()

	assert.False(t, a.TamperDetection.IsMonitoring(ctx, 10), "unknown installation")
	assert.True(t, a.TamperDetection.IsMonitoring(ctx, 9))

	fail = true
	st := a.TamperDetection.MonitoringStatus(ctx, 9)
	assert.True(t, st.Monitoring)
	assert.Equal(t, int64(9), st.InstallationID)
}

func TestLogin(t *testing.T) {
	newMux := func(resp map[string]any) *http.ServeMux {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, resp)
		})
		return mux
	}
	ok := map[string]any{"accessToken": "new", "refreshToken": "ref", "email": "a@b.c", "role": "ADMIN"}
	ctx := context.Background()

	for _, tt := range []struct {
		name     string
		remember bool
		scope    session.Scope
	}{
		{"Remember", true, session.Persistent},
		{"SessionOnly", false, session.Session},
	} {
		t.Run(tt.name, func(t *testing.T) {
			a, store := newTestAPI(t, newMux(ok))
			require.NoError(t, store.Set(ctx, session.Persistent, session.KeyToken, "stale"))

			resp, err := a.Auth.Login(ctx, "a@b.c", "pw", tt.remember)
			require.NoError(t, err)
			assert.Equal(t, types.RoleAdmin, resp.Role)

			tok, scope, err := store.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "new", tok)
			assert.Equal(t, tt.scope, scope)

			ref, err := store.Get(ctx, tt.scope, session.KeyRefreshToken)
			require.NoError(t, err)
			assert.Equal(t, "ref", ref)
		})
	}

	t.Run("InvalidResponse", func(t *testing.T) {
		a, _ := newTestAPI(t, newMux(map[string]any{"email": "a@b.c"}))
		_, err := a.Auth.Login(ctx, "a@b.c", "pw", false)
		assert.ErrorIs(t, err, ErrInvalidLoginResponse)
	})
}

func TestLogout(t *testing.T) {
	a, store := newTestAPI(t, http.NewServeMux())
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, session.Persistent, session.KeyRefreshToken, "ref"))

	require.NoError(t, a.Auth.Logout(ctx))
	tok, _, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	ref, _, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestChangePassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "old", r.URL.Query().Get("currentPassword"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"email": "a@b.c", "newPassword": "new", "confirmPassword": "new"}, body)
		w.WriteHeader(http.StatusOK)
	})
	a, _ := newTestAPI(t, mux)
	require.NoError(t, a.Auth.ChangePassword(context.Background(), "a@b.c", "old", "new"))
}

func TestUsersCurrent(t *testing.T) {
	body := `{"id":1,"email":"a@b.c"}`
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/profile", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, body)
	})
	a, _ := newTestAPI(t, mux)

	u, err := a.Users.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", u.Email)

	body = `{"id":1}`
	_, err = a.Users.Current(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidProfile))
}

func TestReadingsHistoryWindowInUTC(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /monitoring/readings/history/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-05-01T05:00:00", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-05-01T19:00:00", r.URL.Query().Get("endDate"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"installationId": 7, "powerGenerationWatts": 1000, "timestamp": "2024-05-01T06:00:00"},
		})
	})
	a, _ := newTestAPI(t, mux)

	est := time.FixedZone("UTC-5", -5*60*60)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, est)
	end := time.Date(2024, 5, 1, 14, 0, 0, 0, est)
	readings := a.Energy.ReadingsHistory(context.Background(), 7, start, end)
	require.Len(t, readings, 1)
	assert.Equal(t, 1, readings[0].Timestamp.In(est).Hour())
}
