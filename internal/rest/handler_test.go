package rest

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/hub"
	"github.com/s21platform/user-stream-service/internal/model"
)

func newTestLogger(ctrl *gomock.Controller) *logger_lib.MockLoggerInterface {
	logger := logger_lib.NewMockLoggerInterface(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()
	return logger
}

func startServer(t *testing.T, ctrl *gomock.Controller) (*hub.Hub, *httptest.Server) {
	t.Helper()

	logger := newTestLogger(ctrl)
	streamHub := hub.New(logger, hub.WithSendTimeout(50*time.Millisecond))
	srv := httptest.NewServer(NewRouter(New(streamHub.Registry(), streamHub), logger))
	t.Cleanup(srv.Close)

	return streamHub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) model.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)

	env, err := model.Decode(frame)
	require.NoError(t, err)
	return env
}

func TestHandler_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("welcome_then_records", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		streamHub, srv := startServer(t, ctrl)
		_, err := streamHub.Publish(context.Background(), model.NewStreamEnvelope(model.UserRecord{Login: model.Login{UUID: "early"}}, 1, time.Now()))
		require.NoError(t, err)

		conn := dial(t, srv, "/ws")

		welcome := readEnvelope(t, conn)
		require.Equal(t, model.KindWelcome, welcome.Kind)
		assert.Equal(t, int64(1), welcome.Welcome.TotalUsersStreamed)

		require.Eventually(t, func() bool { return streamHub.Registry().Count() == 1 }, time.Second, 5*time.Millisecond)

		for seq := int64(2); seq <= 3; seq++ {
			delivered, err := streamHub.Publish(context.Background(),
				model.NewStreamEnvelope(model.UserRecord{Login: model.Login{UUID: "abc-1"}}, seq, time.Now()))
			require.NoError(t, err)
			assert.Equal(t, 1, delivered)
		}

		first := readEnvelope(t, conn)
		second := readEnvelope(t, conn)
		require.Equal(t, model.KindData, first.Kind)
		require.Equal(t, model.KindData, second.Kind)
		assert.Equal(t, int64(2), first.Stream.StreamSequence)
		assert.Equal(t, int64(3), second.Stream.StreamSequence)
	})

	t.Run("root_path_streams_too", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		_, srv := startServer(t, ctrl)
		conn := dial(t, srv, "/")

		assert.Equal(t, model.KindWelcome, readEnvelope(t, conn).Kind)
	})

	t.Run("client_close_unregisters", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		streamHub, srv := startServer(t, ctrl)
		conn := dial(t, srv, "/ws")
		readEnvelope(t, conn)

		require.Eventually(t, func() bool { return streamHub.Registry().Count() == 1 }, time.Second, 5*time.Millisecond)

		require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
		_ = conn.Close()

		assert.Eventually(t, func() bool { return streamHub.Registry().Count() == 0 }, 2*time.Second, 5*time.Millisecond)

		delivered, err := streamHub.Publish(context.Background(),
			model.NewStreamEnvelope(model.UserRecord{Login: model.Login{UUID: "abc-1"}}, 1, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, 0, delivered)
	})

	t.Run("server_close_ends_stream", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		streamHub, srv := startServer(t, ctrl)
		conn := dial(t, srv, "/ws")
		readEnvelope(t, conn)
		require.Eventually(t, func() bool { return streamHub.Registry().Count() == 1 }, time.Second, 5*time.Millisecond)

		streamHub.Registry().Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	})
}

func TestHandler_GetStats(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	streamHub, srv := startServer(t, ctrl)
	_, err := streamHub.Publish(context.Background(), model.NewStreamEnvelope(model.UserRecord{Login: model.Login{UUID: "abc-1"}}, 1, time.Now()))
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats hub.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalUsersStreamed)
	assert.Equal(t, 0, stats.ActiveClients)
	assert.Equal(t, "1 user/second", stats.StreamRate)
}

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	_, srv := startServer(t, ctrl)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// newSinkLogger builds a real logger that ships to a local stand-in for the log sink.
func newSinkLogger(t *testing.T) logger_lib.LoggerInterface {
	t.Helper()

	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(sink.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(sink.URL, "http://"))
	require.NoError(t, err)

	return logger_lib.New(host, port, "user-stream-service", "test")
}

func TestHandler_ConcurrentSessionsShareLogger(t *testing.T) {
	t.Parallel()

	logger := newSinkLogger(t)
	streamHub := hub.New(logger, hub.WithSendTimeout(50*time.Millisecond))
	srv := httptest.NewServer(NewRouter(New(streamHub.Registry(), streamHub), logger))
	t.Cleanup(srv.Close)

	const sessions = 4

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if !assert.NoError(t, err) {
				return
			}
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			defer conn.Close()

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, frame, err := conn.ReadMessage()
			if !assert.NoError(t, err) {
				return
			}
			env, err := model.Decode(frame)
			if assert.NoError(t, err) {
				assert.Equal(t, model.KindWelcome, env.Kind)
			}

			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		}()
	}

	for seq := int64(1); seq <= 3; seq++ {
		_, err := streamHub.Publish(context.Background(),
			model.NewStreamEnvelope(model.UserRecord{Login: model.Login{UUID: "abc-1"}}, seq, time.Now()))
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Eventually(t, func() bool { return streamHub.Registry().Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}
