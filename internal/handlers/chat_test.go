package handlers

import (
	"net/http"
	"testing"

	"medibook-server/internal/models"
	"medibook-server/internal/testutil"
)

func TestChat_Flow(t *testing.T) {
	env := newTestEnv(t)
	h := NewChatHandler(env.db, env.realtime, env.dispatcher)
	env.router.GET("/chats", h.GetChats)
	env.router.POST("/chats", h.CreateChat)
	env.router.GET("/chats/:chatId", h.GetChat)
	env.router.POST("/chats/:chatId/messages", h.SendMessage)
	env.router.PUT("/chats/:chatId/read", h.MarkRead)

	doctor := testutil.CreateUser(t, env.db, "doc@example.com", models.RoleDoctor)
	patient := testutil.CreateUser(t, env.db, "p@example.com", models.RolePatient)
	stranger := testutil.CreateUser(t, env.db, "s@example.com", models.RolePatient)

	var chat models.Chat
	expect(t, env.do(http.MethodPost, "/chats", patient, map[string]string{"doctorId": doctor.ID}), http.StatusCreated, &chat)

	var again models.Chat
	expect(t, env.do(http.MethodPost, "/chats", patient, map[string]string{"doctorId": doctor.ID}), http.StatusOK, &again)
	if again.ID != chat.ID {
		t.Errorf("second create returned chat %s, want %s", again.ID, chat.ID)
	}
	expect(t, env.do(http.MethodPost, "/chats", patient, map[string]string{"doctorId": stranger.ID}), http.StatusNotFound, nil)

	base := "/chats/" + chat.ID
	expect(t, env.do(http.MethodPost, base+"/messages", patient, map[string]string{"content": "Hello doctor"}), http.StatusCreated, nil)
	expect(t, env.do(http.MethodPost, base+"/messages", patient, map[string]string{"content": "   "}), http.StatusBadRequest, nil)
	expect(t, env.do(http.MethodPost, base+"/messages", stranger, map[string]string{"content": "hi"}), http.StatusForbidden, nil)

	pushed := env.realtime.on(doctor.ID)
	if len(pushed) != 1 || pushed[0].Event != "new-message" {
		t.Fatalf("doctor channel = %+v", pushed)
	}
	if n := env.dispatcher.noticesFor(doctor.ID); len(n) != 1 || n[0].Category != models.CategoryMessage {
		t.Errorf("doctor notices = %+v", n)
	}

	var loaded models.Chat
	expect(t, env.do(http.MethodGet, base, doctor, nil), http.StatusOK, &loaded)
	if loaded.UnreadDoctor != 1 || loaded.LastMessage != "Hello doctor" || len(loaded.Messages) != 1 {
		t.Errorf("chat = unread %d, last %q, %d messages", loaded.UnreadDoctor, loaded.LastMessage, len(loaded.Messages))
	}
	expect(t, env.do(http.MethodGet, base, stranger, nil), http.StatusForbidden, nil)

	expect(t, env.do(http.MethodPut, base+"/read", doctor, nil), http.StatusOK, nil)
	expect(t, env.do(http.MethodGet, base, doctor, nil), http.StatusOK, &loaded)
	if loaded.UnreadDoctor != 0 || !loaded.Messages[0].Read {
		t.Errorf("after read: unread %d, message read %v", loaded.UnreadDoctor, loaded.Messages[0].Read)
	}

	var chats []models.Chat
	expect(t, env.do(http.MethodGet, "/chats", doctor, nil), http.StatusOK, &chats)
	if len(chats) != 1 {
		t.Errorf("doctor chats = %d, want 1", len(chats))
	}
	expect(t, env.do(http.MethodGet, "/chats", stranger, nil), http.StatusOK, &chats)
	if len(chats) != 0 {
		t.Errorf("stranger chats = %d, want 0", len(chats))
	}
}

func TestPreview(t *testing.T) {
	long := make([]rune, previewLength+5)
	for i := range long {
		long[i] = 'é'
	}
	got := []rune(preview(string(long)))
	if len(got) != previewLength+3 {
		t.Errorf("preview length = %d runes", len(got))
	}
	if preview("short") != "short" {
		t.Error("short text must be kept as is")
	}
}
