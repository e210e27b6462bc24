package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/phraseguard/internal/moderation"
)

const testToken = "123456:test-token"

type apiCall struct {
	method string
	form   map[string]string
}

// fakeAPI is a minimal Bot API server answering each method with a canned
// JSON result.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	results map[string]string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	form := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, form: form})
	result, ok := f.results[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: unexpected method"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":` + result + `}`))
}

func (f *fakeAPI) last() apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T, results map[string]string) (*Client, *bot.Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{results: results}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := NewTelegramBot(testToken, nil, bot.WithSkipGetMe(), bot.WithServerURL(srv.URL))
	if err != nil {
		t.Fatalf("NewTelegramBot() error = %v", err)
	}
	return NewClient(b, nil), b, api
}

func TestNewTelegramBotEmptyToken(t *testing.T) {
	t.Parallel()

	if _, err := NewTelegramBot("", nil); err == nil {
		t.Fatal("NewTelegramBot(\"\") error = nil")
	}
}

func TestClientMessages(t *testing.T) {
	t.Parallel()

	client, _, api := newTestClient(t, map[string]string{
		"deleteMessage": `true`,
		"sendMessage":   `{"message_id":42,"date":0,"chat":{"id":-100,"type":"supergroup"},"text":"hi"}`,
	})
	ctx := context.Background()

	if err := client.DeleteMessage(ctx, -100, 7); err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if call := api.last(); call.method != "deleteMessage" || call.form["chat_id"] != "-100" || call.form["message_id"] != "7" {
		t.Errorf("deleteMessage request = %+v", call)
	}

	id, err := client.SendMessage(ctx, -100, "hi")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if id != 42 {
		t.Errorf("SendMessage() id = %d, want 42", id)
	}
	if call := api.last(); call.method != "sendMessage" || call.form["text"] != "hi" {
		t.Errorf("sendMessage request = %+v", call)
	}
}

func TestClientSanctions(t *testing.T) {
	t.Parallel()

	client, _, api := newTestClient(t, map[string]string{
		"banChatMember":   `true`,
		"unbanChatMember": `true`,
	})
	ctx := context.Background()

	if err := client.BanMember(ctx, -100, 9, true); err != nil {
		t.Fatalf("BanMember() error = %v", err)
	}
	if call := api.last(); call.method != "banChatMember" || call.form["user_id"] != "9" || call.form["revoke_messages"] != "true" {
		t.Errorf("banChatMember request = %+v", call)
	}

	if err := client.UnbanMember(ctx, -100, 9); err != nil {
		t.Fatalf("UnbanMember() error = %v", err)
	}
	if call := api.last(); call.method != "unbanChatMember" || call.form["only_if_banned"] != "true" {
		t.Errorf("unbanChatMember request = %+v", call)
	}
}

func TestClientMemberStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		want   moderation.MemberStatus
	}{
		{status: "creator", want: moderation.MemberStatusOwner},
		{status: "administrator", want: moderation.MemberStatusAdministrator},
		{status: "member", want: moderation.MemberStatusMember},
		{status: "left", want: moderation.MemberStatusLeft},
		{status: "kicked", want: moderation.MemberStatusBanned},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()
			client, _, _ := newTestClient(t, map[string]string{
				"getChatMember": `{"status":"` + tt.status + `","user":{"id":5,"is_bot":false,"first_name":"A"}}`,
			})
			got, err := client.MemberStatus(context.Background(), -100, 5)
			if err != nil {
				t.Fatalf("MemberStatus() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MemberStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	client, _, _ := newTestClient(t, map[string]string{})
	ctx := context.Background()

	if err := client.DeleteMessage(ctx, -100, 1); err == nil {
		t.Error("DeleteMessage() error = nil on API failure")
	}
	if _, err := client.SendMessage(ctx, -100, "x"); err == nil {
		t.Error("SendMessage() error = nil on API failure")
	}
	status, err := client.MemberStatus(ctx, -100, 1)
	if err == nil || status != moderation.MemberStatusUnknown {
		t.Errorf("MemberStatus() = %v, %v on API failure", status, err)
	}
	if err := client.BanMember(ctx, -100, 1, true); err == nil {
		t.Error("BanMember() error = nil on API failure")
	}
}

func TestMemberStatusMapping(t *testing.T) {
	t.Parallel()

	if got := memberStatus(models.ChatMemberTypeRestricted); got != moderation.MemberStatusRestricted {
		t.Errorf("memberStatus(restricted) = %v", got)
	}
	if got := memberStatus(models.ChatMemberType("unexpected")); got != moderation.MemberStatusUnknown {
		t.Errorf("memberStatus(unexpected) = %v", got)
	}
}

func TestRegisterCommands(t *testing.T) {
	t.Parallel()

	_, b, api := newTestClient(t, map[string]string{"setMyCommands": `true`})

	if err := RegisterCommands(context.Background(), b, nil, moderation.Commands()); err != nil {
		t.Fatalf("RegisterCommands() error = %v", err)
	}
	call := api.last()
	if call.method != "setMyCommands" {
		t.Fatalf("method = %s", call.method)
	}
	for _, name := range []string{`"add"`, `"remove"`, `"print"`, `"help"`} {
		if !strings.Contains(call.form["commands"], name) {
			t.Errorf("commands payload %s missing %s", call.form["commands"], name)
		}
	}
}

func TestRegisterUpdateHandler(t *testing.T) {
	t.Parallel()

	_, b, _ := newTestClient(t, map[string]string{})

	if _, err := RegisterUpdateHandler(b, nil, nil, nil); err == nil {
		t.Error("RegisterUpdateHandler() without functions error = nil")
	}

	got := make(chan int64, 1)
	match := func(update *models.Update) bool { return update.Message != nil }
	handler := func(ctx context.Context, b *bot.Bot, update *models.Update) { got <- update.ID }
	if _, err := RegisterUpdateHandler(b, nil, match, handler); err != nil {
		t.Fatalf("RegisterUpdateHandler() error = %v", err)
	}

	b.ProcessUpdate(context.Background(), &models.Update{ID: 77, Message: &models.Message{Chat: models.Chat{ID: -1}}})
	select {
	case id := <-got:
		if id != 77 {
			t.Errorf("handled update %d, want 77", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("registered handler not invoked")
	}
}
