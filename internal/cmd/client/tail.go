package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/s21platform/user-stream-service/internal/model"
)

// NewTailCommand constructs the `tail` command which prints records as they arrive.
func NewTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Subscribe to the stream and print each record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, _ := cmd.Flags().GetString("url")
			count, _ := cmd.Flags().GetInt("count")
			if url == "" {
				url = wsURL(baseURL())
			}
			return tail(cmd.Context(), url, count, cmd.OutOrStdout())
		},
	}
	tailCmd.Flags().String("url", "", "Websocket URL (default derived from STREAM_HTTP)")
	tailCmd.Flags().Int("count", 0, "Stop after N records (0 = infinite)")
	return tailCmd
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimSuffix(base, "/") + "/ws"
}

func tail(ctx context.Context, url string, count int, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var seen int
	for count == 0 || seen < count {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream closed: %w", err)
		}

		env, err := model.Decode(frame)
		if err != nil {
			if errors.Is(err, model.ErrDecode) {
				_, _ = fmt.Fprintf(out, "skipping message: %v\n", err)
				continue
			}
			return err
		}

		switch env.Kind {
		case model.KindWelcome:
			_, _ = fmt.Fprintf(out, "%s (%d users streamed, %s)\n",
				env.Welcome.Message, env.Welcome.TotalUsersStreamed, env.Welcome.StreamRate)
		case model.KindData:
			seen++
			_, _ = fmt.Fprintf(out, "#%d %s <%s> %s, %s\n",
				env.Stream.StreamSequence, env.Stream.FullName(), env.Stream.Email,
				env.Stream.Location.City, env.Stream.Location.Country)
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
