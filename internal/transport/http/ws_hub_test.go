package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) outboundMessage {
	t.Helper()
	var msg outboundMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

func TestHubDeliversNotification(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialWS(t, server, "student-1")
	waitForConn(t, hub, "student-1")

	dir := memory.NewDirectory(nil, nil)
	announcer := NewHubAnnouncer(hub, dir)
	if err := announcer.NotifyUser(context.Background(), "student-1", "Reminder: the quiz 'Midterm' is starting in 1 minute."); err != nil {
		t.Fatalf("notify: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != "notification" {
		t.Fatalf("expected notification, got %s", msg.Type)
	}
}

func TestHubAnnouncerFansOutToMembers(t *testing.T) {
	courseID := uuid.New()
	dir := memory.NewDirectory(
		[]domain.Course{{ID: courseID, Name: "Algorithms", AdminID: "teacher-1", CreatedAt: time.Now()}},
		[]domain.CourseMember{
			{ID: uuid.New(), CourseID: courseID, UserID: "student-1", FullName: "Alan Turing", Role: "student"},
			{ID: uuid.New(), CourseID: courseID, UserID: "student-2", FullName: "Grace Hopper", Role: "student"},
		},
	)
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	first := dialWS(t, server, "student-1")
	second := dialWS(t, server, "student-2")
	waitForConn(t, hub, "student-1")
	waitForConn(t, hub, "student-2")

	announcer := NewHubAnnouncer(hub, dir)
	err := announcer.Publish(context.Background(), courseID, domain.Announcement{
		ID:       uuid.New(),
		CourseID: courseID,
		Message:  "Quiz report: Midterm",
		SentAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != "announcement" {
			t.Fatalf("expected announcement, got %s", msg.Type)
		}
	}
}

func waitForConn(t *testing.T, hub *Hub, userID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.conns[userID])
		hub.mu.RUnlock()
		if n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection for %s never registered", userID)
}
