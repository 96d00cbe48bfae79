package collab

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/inamate/bspview/internal/auth"
	"github.com/inamate/bspview/internal/catalog"
	"github.com/inamate/bspview/internal/scene"
	"github.com/inamate/bspview/internal/store"
)

func triangle() *scene.Scene {
	s := scene.NewEmptyScene("scene_tri", "triangle")
	s.Segments = []scene.Segment{
		{ID: "s1", Start: scene.Point{X: 0, Y: 0}, End: scene.Point{X: 4, Y: 0}},
		{ID: "s2", Start: scene.Point{X: 4, Y: 0}, End: scene.Point{X: 0, Y: 4}},
		{ID: "s3", Start: scene.Point{X: 0, Y: 4}, End: scene.Point{X: 0, Y: 0}},
	}
	return s
}

func segIDs(s *scene.Scene) []string {
	out := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		out[i] = seg.ID
	}
	return out
}

func TestApplyOperation(t *testing.T) {
	at := func(i int) *int { return &i }

	t.Run("add at index", func(t *testing.T) {
		s := triangle()
		op := &Operation{Type: OpSegmentAdd, Index: at(1), Segment: &scene.Segment{
			ID: "s4", Start: scene.Point{X: 1, Y: 1}, End: scene.Point{X: 2, Y: 2},
		}}
		require.NoError(t, ApplyOperation(s, op))
		require.Equal(t, []string{"s1", "s4", "s2", "s3"}, segIDs(s))
		require.Equal(t, "s4", op.SegmentID)
	})

	t.Run("add appends and names", func(t *testing.T) {
		s := triangle()
		op := &Operation{Type: OpSegmentAdd, Segment: &scene.Segment{End: scene.Point{X: 1}}}
		require.NoError(t, ApplyOperation(s, op))
		require.Len(t, s.Segments, 4)
		require.True(t, strings.HasPrefix(op.SegmentID, "seg_"))
		require.Equal(t, op.SegmentID, s.Segments[3].ID)
	})

	t.Run("add duplicate", func(t *testing.T) {
		s := triangle()
		err := ApplyOperation(s, &Operation{Type: OpSegmentAdd, Segment: &scene.Segment{ID: "s2"}})
		require.ErrorContains(t, err, "already exists")
	})

	t.Run("remove", func(t *testing.T) {
		s := triangle()
		require.NoError(t, ApplyOperation(s, &Operation{Type: OpSegmentRemove, SegmentID: "s2"}))
		require.Equal(t, []string{"s1", "s3"}, segIDs(s))
		require.Error(t, ApplyOperation(s, &Operation{Type: OpSegmentRemove, SegmentID: "s2"}))
	})

	t.Run("move", func(t *testing.T) {
		s := triangle()
		op := &Operation{
			Type:      OpSegmentMove,
			SegmentID: "s1",
			Start:     &scene.Point{X: 1, Y: 1},
			End:       &scene.Point{X: 5, Y: 1},
		}
		require.NoError(t, ApplyOperation(s, op))
		require.Equal(t, scene.Point{X: 5, Y: 1}, s.Segments[0].End)

		require.Error(t, ApplyOperation(s, &Operation{Type: OpSegmentMove, SegmentID: "s1"}))
	})

	t.Run("unknown", func(t *testing.T) {
		require.Error(t, ApplyOperation(triangle(), &Operation{Type: "segment.paint"}))
	})
}

type harness struct {
	srv    *httptest.Server
	hub    *Hub
	scenes *catalog.Service
	auth   *auth.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	scenes := catalog.NewService(store.NewMemory(), nil, 100)
	_, err := scenes.Create(context.Background(), triangle())
	require.NoError(t, err)

	authSvc := auth.NewService("secret", time.Hour)
	hub := NewHub(scenes)
	go hub.Run()

	r := mux.NewRouter()
	r.HandleFunc("/ws/scenes/{sceneId}", hub.Handler(authSvc, nil))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return &harness{srv: srv, hub: hub, scenes: scenes, auth: authSvc}
}

func (h *harness) dial(t *testing.T, ctx context.Context, sceneID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws/scenes/" + sceneID
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	msg, err := json.Marshal(Message{Type: typ, Payload: data})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, msg))
}

// readUntil skips messages until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, into any) {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == typ {
			if into != nil {
				require.NoError(t, json.Unmarshal(msg.Payload, into))
			}
			return
		}
	}
}

func commandIDs(p OrderPayload) []string {
	out := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		out[i] = c.SegmentID
	}
	return out
}

func TestViewerReceivesOrder(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, "scene_tri", "")

	var welcome WelcomePayload
	readUntil(t, ctx, conn, TypeWelcome, &welcome)
	require.False(t, welcome.CanEdit)
	require.Equal(t, 1, welcome.Version)
	require.Equal(t, "Anonymous", welcome.DisplayName)

	send(t, ctx, conn, TypeEyeUpdate, EyePayload{X: 10, Y: 10})
	var order OrderPayload
	readUntil(t, ctx, conn, TypeOrder, &order)
	require.Equal(t, "back-to-front", order.Order)
	require.Equal(t, []string{"s1", "s3", "s2"}, commandIDs(order))

	send(t, ctx, conn, TypeEyeUpdate, EyePayload{X: 10, Y: 10, Order: "front-to-back"})
	readUntil(t, ctx, conn, TypeOrder, &order)
	require.Equal(t, []string{"s2", "s3", "s1"}, commandIDs(order))

	send(t, ctx, conn, TypeEyeUpdate, EyePayload{X: 10, Y: 10, Order: "sideways"})
	var perr ErrorPayload
	readUntil(t, ctx, conn, TypeError, &perr)
	require.Contains(t, perr.Message, "unknown order")

	send(t, ctx, conn, TypeOpSubmit, OperationSubmitPayload{Operation: Operation{
		ID: "op1", Type: OpSegmentRemove, SegmentID: "s1",
	}})
	var nack OperationNackPayload
	readUntil(t, ctx, conn, TypeOpNack, &nack)
	require.Equal(t, OperationNackPayload{OperationID: "op1", Reason: "read-only"}, nack)
}

func TestEditorChangesScene(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := h.auth.IssueToken(auth.Identity{Subject: "ed", Name: "Ed", Role: auth.RoleEditor})
	require.NoError(t, err)

	viewer := h.dial(t, ctx, "scene_tri", "")
	readUntil(t, ctx, viewer, TypeWelcome, nil)
	send(t, ctx, viewer, TypeEyeUpdate, EyePayload{X: 10, Y: 10})
	readUntil(t, ctx, viewer, TypeOrder, nil)

	editor := h.dial(t, ctx, "scene_tri", token)
	var welcome WelcomePayload
	readUntil(t, ctx, editor, TypeWelcome, &welcome)
	require.True(t, welcome.CanEdit)
	require.Equal(t, "ed", welcome.UserID)

	var join PresenceJoinPayload
	readUntil(t, ctx, viewer, TypePresenceJoin, &join)
	require.Equal(t, "Ed", join.DisplayName)

	send(t, ctx, editor, TypeOpSubmit, OperationSubmitPayload{Operation: Operation{
		ID: "op1", Type: OpSegmentRemove, SegmentID: "s1",
	}})

	var ack OperationAckPayload
	readUntil(t, ctx, editor, TypeOpAck, &ack)
	require.Equal(t, "op1", ack.OperationID)
	require.Equal(t, 2, ack.Version)
	require.Equal(t, int64(1), ack.ServerSeq)

	var changed SceneChangedPayload
	readUntil(t, ctx, viewer, TypeSceneChanged, &changed)
	require.Equal(t, SceneChangedPayload{Version: 2, OperationID: "op1", UserID: "ed"}, changed)

	// The viewer's eye is known, so a fresh order follows the change.
	var order OrderPayload
	readUntil(t, ctx, viewer, TypeOrder, &order)
	require.Equal(t, 2, order.Version)
	require.Equal(t, []string{"s3", "s2"}, commandIDs(order))

	stored, err := h.scenes.Get(ctx, "scene_tri")
	require.NoError(t, err)
	require.Equal(t, []string{"s2", "s3"}, segIDs(stored))

	send(t, ctx, editor, TypeOpSubmit, OperationSubmitPayload{Operation: Operation{
		ID: "op2", Type: OpSegmentRemove, SegmentID: "s1",
	}})
	var nack OperationNackPayload
	readUntil(t, ctx, editor, TypeOpNack, &nack)
	require.Equal(t, "op2", nack.OperationID)
	require.Contains(t, nack.Reason, "segment not found")
}

func TestUnknownSceneAndBadToken(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws/scenes/"

	_, resp, err := websocket.Dial(ctx, url+"missing", nil)
	require.Error(t, err)
	require.Equal(t, 404, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, url+"scene_tri?token=junk", nil)
	require.Error(t, err)
	require.Equal(t, 401, resp.StatusCode)
}

func TestRoomsCloseWhenEmpty(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, "scene_tri", "")
	readUntil(t, ctx, conn, TypeWelcome, nil)
	require.Equal(t, 1, h.hub.RoomCount())

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return h.hub.RoomCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubClosesClientsJoiningAfterStop(t *testing.T) {
	scenes := catalog.NewService(store.NewMemory(), nil, 100)
	_, err := scenes.Create(context.Background(), triangle())
	require.NoError(t, err)

	hub := NewHub(scenes)
	hub.Stop()

	id := auth.Identity{Subject: "late", Name: "Late", Role: auth.RoleViewer}

	// The hub loop took the registration just before Stop.
	taken := NewClient(hub, nil, id, "scene_tri", "c1")
	hub.addClient(taken)
	<-taken.joined
	require.True(t, taken.closed)
	require.Zero(t, hub.RoomCount())

	// Registering after Stop does not block and closes the client.
	late := NewClient(hub, nil, id, "scene_tri", "c2")
	hub.Register(context.Background(), late)
	require.True(t, late.closed)
	require.Zero(t, hub.RoomCount())
}
