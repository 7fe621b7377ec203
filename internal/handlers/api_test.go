package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luckydraw/internal/models"
	"luckydraw/internal/services"
)

func TestAPIGetState(t *testing.T) {
	_, router := setupTestRouter(t)

	w := performRequest(router, http.MethodGet, "/api/state", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state models.AppState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Len(t, state.Prizes, 3)
	assert.NotNil(t, state.Participants)
	assert.Equal(t, "CYPRESSTEL", state.SiteConfig.BrandName)
}

func TestAPIStatus(t *testing.T) {
	service, router := setupTestRouter(t)
	seedParticipants(t, service)

	w := performRequest(router, http.MethodGet, "/api/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, statusResponse{Status: string(services.StatusOnline), PoolSize: 3}, got)
}

func TestAPIAdminAuth(t *testing.T) {
	_, router := setupTestRouter(t)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "guess", http.StatusUnauthorized},
		{"valid token", testToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{"Content-Type": "application/json"}
			if tt.token != "" {
				headers["x-admin-token"] = tt.token
			}
			w := performRequest(router, http.MethodPut, "/api/site-config",
				strings.NewReader(`{"brandName":"ACME","eventName":"Party"}`), headers)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAPIOpenWithoutToken(t *testing.T) {
	service, router := setupTestRouter(t)
	handler := NewHTTPHandler(service, nil, "")
	r := NewRouter("test")
	handler.registerAPIRoutes(r)

	w := performRequest(r, http.MethodDelete, "/api/history", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// the shared router still requires the token
	w = performRequest(router, http.MethodDelete, "/api/history", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIDraw(t *testing.T) {
	service, router := setupTestRouter(t)
	seedParticipants(t, service)

	t.Run("draw caps at remaining slots", func(t *testing.T) {
		w := adminJSON(router, http.MethodPost, "/api/draw", drawRequest{PrizeID: "1", Count: 5})
		require.Equal(t, http.StatusOK, w.Code)

		var result services.DrawResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Len(t, result.Winners, 1)
		assert.Len(t, result.Records, 1)
		assert.Equal(t, 1, result.Prize.DrawnCount)
	})

	t.Run("exhausted prize", func(t *testing.T) {
		w := adminJSON(router, http.MethodPost, "/api/draw", drawRequest{PrizeID: "1"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown prize", func(t *testing.T) {
		w := adminJSON(router, http.MethodPost, "/api/draw", drawRequest{PrizeID: "nope"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing prize id", func(t *testing.T) {
		w := adminJSON(router, http.MethodPost, "/api/draw", map[string]int{"count": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative count", func(t *testing.T) {
		w := adminJSON(router, http.MethodPost, "/api/draw", drawRequest{PrizeID: "3", Count: -2})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pool exhausted", func(t *testing.T) {
		w := adminJSON(router, http.MethodPost, "/api/draw", drawRequest{PrizeID: "3", Count: 10})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, service.PoolSize())

		w = adminJSON(router, http.MethodPost, "/api/draw", drawRequest{PrizeID: "2"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	w := performRequest(router, http.MethodGet, "/api/history", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 3)
	assert.Equal(t, "二等奖", history[0].PrizeName)
	assert.Equal(t, "特等奖", history[2].PrizeName)

	w = adminJSON(router, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, service.Winners())
	assert.Equal(t, 3, service.PoolSize())
}

func TestAPIDrawBlockedByCeremony(t *testing.T) {
	service, router := setupTestRouter(t)
	seedParticipants(t, service)

	_, err := service.StartDraw("3", 1)
	require.NoError(t, err)

	w := adminJSON(router, http.MethodPost, "/api/draw", drawRequest{PrizeID: "3"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPIReplaceLists(t *testing.T) {
	service, router := setupTestRouter(t)

	participants := []models.Participant{{ID: "p1", Name: "Alice", Code: "E1", Department: "Dev"}}
	w := adminJSON(router, http.MethodPut, "/api/participants", participants)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, participants, service.Participants())

	w = adminJSON(router, http.MethodPut, "/api/participants", []models.Participant{{ID: "p2", Name: "NoCode"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, service.Participants(), 1)

	prizes := []models.Prize{{ID: "x", Name: "Mug", Count: 2, DrawnCount: 1}}
	w = adminJSON(router, http.MethodPut, "/api/prizes", prizes)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prizes, service.Prizes())

	w = adminJSON(router, http.MethodPut, "/api/prizes", []models.Prize{{ID: "y", Name: "Bad", Count: 1, DrawnCount: 2}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = adminJSON(router, http.MethodPut, "/api/prizes", "not a list")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIPutState(t *testing.T) {
	service, router := setupTestRouter(t)

	state := models.AppState{
		Participants: []models.Participant{{ID: "p1", Name: "Alice", Code: "E1", Department: "Dev", IsWinner: true}},
		Prizes:       []models.Prize{{ID: "x", Name: "Mug", Count: 1, DrawnCount: 1}},
		Winners:      []models.Winner{{ID: "w1", ParticipantID: "p1", PrizeID: "x", Timestamp: 1}},
		SiteConfig:   models.SiteConfig{BrandName: "ACME", EventName: "Party"},
	}
	w := adminJSON(router, http.MethodPut, "/api/state", state)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, state, service.State())

	history := service.History()
	require.Len(t, history, 1)
	assert.Equal(t, "Alice", history[0].ParticipantName)

	require.NoError(t, service.RemoveParticipant(context.Background(), "p1"))
	assert.Equal(t, services.UnknownParticipant, service.History()[0].ParticipantName)
}

func TestAPISiteConfigValidation(t *testing.T) {
	_, router := setupTestRouter(t)

	w := adminJSON(router, http.MethodPut, "/api/site-config", models.SiteConfig{EventName: "Party"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "brand name is required")
}

func TestAPIRejectsInvalidLists(t *testing.T) {
	service, router := setupTestRouter(t)
	seedParticipants(t, service)

	dupParticipants := []models.Participant{
		{ID: "x", Name: "Alice", Code: "E1"},
		{ID: "x", Name: "Bob", Code: "E2"},
	}
	dupPrizes := []models.Prize{
		{ID: "p", Name: "Mug", Count: 1},
		{ID: "p", Name: "Bike", Count: 1},
	}
	validPrizes := []models.Prize{{ID: "p", Name: "Mug", Count: 1}}
	validParticipants := []models.Participant{{ID: "x", Name: "Alice", Code: "E1"}}

	tests := []struct {
		name string
		path string
		body any
		want string
	}{
		{"duplicate participant ids", "/api/participants", dupParticipants, `duplicate participant id "x"`},
		{"duplicate prize ids", "/api/prizes", dupPrizes, `duplicate prize id "p"`},
		{"state with duplicate participant ids", "/api/state",
			models.AppState{Participants: dupParticipants, Prizes: validPrizes}, `duplicate participant id "x"`},
		{"state with duplicate prize ids", "/api/state",
			models.AppState{Participants: validParticipants, Prizes: dupPrizes}, `duplicate prize id "p"`},
		{"state with overdrawn prize", "/api/state",
			models.AppState{Prizes: []models.Prize{{ID: "p", Name: "Mug", Count: 1, DrawnCount: 2}}},
			"drawnCount must be between 0 and count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := adminJSON(router, http.MethodPut, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Error)
		})
	}

	assert.Len(t, service.Participants(), 3, "rejected writes leave the state alone")
	assert.Len(t, service.Prizes(), 3)
}
