package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reversus/internal/protocol"
	"reversus/internal/room"
)

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListRoomsEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := room.NewDirectory(ctx, room.Params{Logger: zap.NewNop()})

	rec := httptest.NewRecorder()
	ListRooms(dir)(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var listings []protocol.RoomListing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listings))
	assert.Empty(t, listings)
}

func TestRoutesServeHealthz(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := room.NewDirectory(ctx, room.Params{Logger: zap.NewNop()})

	srv := httptest.NewServer(SetupRoutes(dir, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
