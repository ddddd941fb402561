package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

var errBackend = errors.New("backend unavailable")

// fakeBackend is an in-memory conversation store with switchable failures.
type fakeBackend struct {
	mu      sync.Mutex
	chats   map[string]*chat.Chat
	order   []string
	seq     int
	clock   time.Time
	failOn  map[string]bool
	onSend  func()
	appends int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chats:  make(map[string]*chat.Chat),
		clock:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		failOn: make(map[string]bool),
	}
}

func (f *fakeBackend) fail(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op] = true
}

func (f *fakeBackend) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeBackend) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeBackend) ListChats(context.Context) ([]chat.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn["list"] {
		return nil, errBackend
	}
	out := make([]chat.Chat, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		if c, ok := f.chats[f.order[i]]; ok {
			out = append(out, c.Summary())
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateChat(_ context.Context, title string) (chat.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn["create"] {
		return chat.Chat{}, errBackend
	}
	now := f.tick()
	c := &chat.Chat{ID: f.nextID("chat"), OwnerID: "alice", Title: title, CreatedAt: now, UpdatedAt: now}
	f.chats[c.ID] = c
	f.order = append(f.order, c.ID)
	return *c, nil
}

func (f *fakeBackend) GetChat(_ context.Context, chatID string) (chat.Chat, []chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn["get"] {
		return chat.Chat{}, nil, errBackend
	}
	c, ok := f.chats[chatID]
	if !ok {
		return chat.Chat{}, nil, errBackend
	}
	return c.Summary(), append([]chat.Message(nil), c.History...), nil
}

func (f *fakeBackend) AppendTurn(_ context.Context, chatID, text, image string) (chat.Turn, error) {
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.failOn["append"] {
		return chat.Turn{}, errBackend
	}
	c, ok := f.chats[chatID]
	if !ok {
		return chat.Turn{}, errBackend
	}
	user := chat.Message{ID: f.nextID("msg"), Role: chat.RoleUser, Parts: []chat.Part{{Text: text, Image: image}}, CreatedAt: f.tick()}
	reply := chat.Message{ID: f.nextID("msg"), Role: chat.RoleAssistant, Parts: []chat.Part{{Text: "re: " + text}}, CreatedAt: f.tick()}
	c.History = append(c.History, user, reply)
	c.LastMessage = text
	c.UpdatedAt = reply.CreatedAt
	// move to the end of order so ListChats returns it first
	for i, id := range f.order {
		if id == chatID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	f.order = append(f.order, chatID)
	return chat.Turn{UserMessage: user, AIResponse: reply}, nil
}

func (f *fakeBackend) DeleteChat(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn["delete"] {
		return errBackend
	}
	if _, ok := f.chats[chatID]; !ok {
		return errBackend
	}
	delete(f.chats, chatID)
	return nil
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Op
	}
	return out
}

func setup(t *testing.T) (*Cache, *fakeBackend, *recorder) {
	t.Helper()
	backend := newFakeBackend()
	rec := &recorder{}
	return New(backend, rec), backend, rec
}

func TestCreateChatSelectsAndSendsInitialMessage(t *testing.T) {
	c, _, rec := setup(t)
	ctx := context.Background()

	created, err := c.CreateChat(ctx, "What are good sources of vitamin D in winter?", "")
	require.NoError(t, err)
	assert.Equal(t, "What are good sources of vitam", created.Title)

	s := c.Snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, created.ID, s.Current.ID)
	require.Len(t, s.History, 2)
	assert.Equal(t, chat.RoleUser, s.History[0].Role)
	assert.Equal(t, chat.RoleAssistant, s.History[1].Role)
	assert.NotContains(t, s.History[0].ID, TempIDPrefix)
	require.Len(t, s.Chats, 1)
	assert.Equal(t, "What are good sources of vitamin D in winter?", s.Chats[0].LastMessage)
	assert.Equal(t, "What are good sources of vitamin D in winter?", s.Current.LastMessage)
	assert.False(t, s.Loading)
	assert.Empty(t, rec.ops())
}

func TestCreateChatWithoutTextUsesDefaultTitle(t *testing.T) {
	c, backend, _ := setup(t)

	created, err := c.CreateChat(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultTitle, created.Title)
	assert.Zero(t, backend.appends)
	assert.Empty(t, c.Snapshot().History)
}

func TestCreateChatSurvivesFailedFirstMessage(t *testing.T) {
	c, backend, rec := setup(t)
	backend.fail("append")

	created, err := c.CreateChat(context.Background(), "hello", "")
	require.NoError(t, err)

	s := c.Snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, created.ID, s.Current.ID)
	assert.Empty(t, s.History)
	assert.Equal(t, []string{"send"}, rec.ops())
}

func TestCreateChatFailureLeavesState(t *testing.T) {
	c, backend, rec := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "", "")
	require.NoError(t, err)
	before := c.Snapshot()

	backend.fail("create")
	_, err = c.CreateChat(ctx, "second", "")
	require.ErrorIs(t, err, errBackend)

	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, []string{"create"}, rec.ops())
}

func TestSendShowsOptimisticMessageWhilePending(t *testing.T) {
	c, backend, _ := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "", "")
	require.NoError(t, err)

	var during State
	backend.onSend = func() { during = c.Snapshot() }

	_, err = c.Send(ctx, "I can't sleep", "")
	require.NoError(t, err)

	require.Len(t, during.History, 1)
	assert.Contains(t, during.History[0].ID, TempIDPrefix)
	assert.Equal(t, "I can't sleep", during.History[0].Text())
	assert.True(t, during.Loading)

	after := c.Snapshot()
	require.Len(t, after.History, 2)
	assert.NotContains(t, after.History[0].ID, TempIDPrefix)
	assert.Equal(t, "re: I can't sleep", after.History[1].Text())
}

func TestSendAppendsConfirmedTurnAfterReload(t *testing.T) {
	c, backend, _ := setup(t)
	ctx := context.Background()

	created, err := c.CreateChat(ctx, "", "")
	require.NoError(t, err)

	backend.onSend = func() {
		require.NoError(t, c.Select(ctx, created.ID))
	}

	turn, err := c.Send(ctx, "hello", "")
	require.NoError(t, err)

	s := c.Snapshot()
	require.Len(t, s.History, 2)
	assert.Equal(t, turn.UserMessage.ID, s.History[0].ID)
	assert.Equal(t, turn.AIResponse.ID, s.History[1].ID)

	_, server, err := backend.GetChat(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, server, s.History)
}

func TestSendFailureRestoresHistory(t *testing.T) {
	c, backend, rec := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "first", "")
	require.NoError(t, err)
	before := c.Snapshot()
	require.Len(t, before.History, 2)

	backend.fail("append")
	_, err = c.Send(ctx, "second", "")
	require.ErrorIs(t, err, errBackend)

	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, []string{"send"}, rec.ops())
}

func TestSendKeepsConfirmedTurnWhenRefreshFails(t *testing.T) {
	c, backend, rec := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "", "")
	require.NoError(t, err)

	backend.fail("list")
	_, err = c.Send(ctx, "hi", "")
	require.NoError(t, err)

	assert.Len(t, c.Snapshot().History, 2)
	assert.Equal(t, []string{"refresh"}, rec.ops())
}

func TestSendValidation(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	_, err := c.Send(ctx, "hi", "")
	assert.ErrorIs(t, err, ErrNoChatSelected)

	_, err = c.CreateChat(ctx, "", "")
	require.NoError(t, err)
	_, err = c.Send(ctx, " ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendImageOnly(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "", "https://ik.imagekit.io/aura/meal.jpg")
	require.NoError(t, err)

	s := c.Snapshot()
	require.Len(t, s.History, 2)
	assert.Equal(t, "https://ik.imagekit.io/aura/meal.jpg", s.History[0].Image())
}

func TestSelectReplacesHistory(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	first, err := c.CreateChat(ctx, "first chat", "")
	require.NoError(t, err)
	second, err := c.CreateChat(ctx, "second chat", "")
	require.NoError(t, err)
	_, err = c.Send(ctx, "more", "")
	require.NoError(t, err)
	require.Len(t, c.Snapshot().History, 4)

	require.NoError(t, c.Select(ctx, first.ID))
	s := c.Snapshot()
	assert.Equal(t, first.ID, s.Current.ID)
	require.Len(t, s.History, 2)
	assert.Equal(t, "first chat", s.History[0].Text())

	require.NoError(t, c.Select(ctx, second.ID))
	assert.Len(t, c.Snapshot().History, 4)
}

func TestSelectFailureLeavesState(t *testing.T) {
	c, backend, rec := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "hello", "")
	require.NoError(t, err)
	before := c.Snapshot()

	backend.fail("get")
	require.Error(t, c.Select(ctx, "chat-1"))

	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, []string{"select"}, rec.ops())
}

func TestDeleteClearsCurrentChat(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	keep, err := c.CreateChat(ctx, "keep", "")
	require.NoError(t, err)
	drop, err := c.CreateChat(ctx, "drop", "")
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, keep.ID))
	s := c.Snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, drop.ID, s.Current.ID)
	require.Len(t, s.Chats, 1)

	require.NoError(t, c.Delete(ctx, drop.ID))
	s = c.Snapshot()
	assert.Nil(t, s.Current)
	assert.Empty(t, s.History)
	assert.Empty(t, s.Chats)
}

func TestDeleteFailureLeavesState(t *testing.T) {
	c, backend, rec := setup(t)
	ctx := context.Background()

	created, err := c.CreateChat(ctx, "hello", "")
	require.NoError(t, err)
	before := c.Snapshot()

	backend.fail("delete")
	require.Error(t, c.Delete(ctx, created.ID))

	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, []string{"delete"}, rec.ops())
}

func TestClearSelection(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "hello", "")
	require.NoError(t, err)

	c.ClearSelection()
	s := c.Snapshot()
	assert.Nil(t, s.Current)
	assert.Empty(t, s.History)
	assert.Len(t, s.Chats, 1)
}

func TestSnapshotIsACopy(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	_, err := c.CreateChat(ctx, "hello", "")
	require.NoError(t, err)

	s := c.Snapshot()
	s.History[0].Parts[0].Text = "mutated"
	s.Current.Title = "mutated"

	fresh := c.Snapshot()
	assert.Equal(t, "hello", fresh.History[0].Text())
	assert.Equal(t, "hello", fresh.Current.Title)
}

func TestNoticeMessage(t *testing.T) {
	assert.Equal(t, "Failed to send message", Notice{Op: "send"}.Message())
	assert.Equal(t, "Something went wrong", Notice{Op: "other"}.Message())
}
