package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rakhazzan/SINTESIS/internal/adapters/events"
	"github.com/Rakhazzan/SINTESIS/internal/application/chat"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// Mocks

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) ListConversation(ctx context.Context, a, b string) ([]*entities.Message, error) {
	args := m.Called(ctx, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Message), args.Error(1)
}

func (m *MockMessageRepository) Create(ctx context.Context, message *entities.Message) (*entities.Message, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockMessageRepository) CountUnread(ctx context.Context, receiverID string) (int, error) {
	args := m.Called(ctx, receiverID)
	return args.Int(0), args.Error(1)
}

// fakeClock advances one second per reading
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

const (
	me   = "u-me"
	peer = "u-peer"
)

type fixture struct {
	repo *MockMessageRepository
	feed *events.MemoryEventBus
	conv *chat.Conversation
}

func newFixture(t *testing.T, history []*entities.Message) *fixture {
	t.Helper()
	repo := new(MockMessageRepository)
	repo.On("ListConversation", mock.Anything, me, peer).Return(history, nil)
	feed := events.NewMemoryEventBus()
	t.Cleanup(func() { feed.Close() })

	clock := &fakeClock{now: t0}
	conv := chat.NewConversation(chat.Options{
		Self:     me,
		Peer:     peer,
		Messages: repo,
		Feed:     feed,
		Now:      clock.Now,
	})
	t.Cleanup(conv.Stop)
	return &fixture{repo: repo, feed: feed, conv: conv}
}

func (f *fixture) echo(t *testing.T, op entities.Operation, m *entities.Message) {
	t.Helper()
	event, err := entities.NewChangeEvent(entities.TableMessages, op, m, nil)
	require.NoError(t, err)
	require.NoError(t, f.feed.Publish(context.Background(), event))
}

func bodies(msgs []*entities.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestSendMessage_BlankBodyNeverWrites(t *testing.T) {
	f := newFixture(t, []*entities.Message{})
	require.NoError(t, f.conv.Start(context.Background()))
	before := f.conv.Snapshot()

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := f.conv.SendMessage(context.Background(), body)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	}

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, before.Version, f.conv.Snapshot().Version)
	assert.Empty(t, f.conv.Snapshot().Data)
}

func TestSendMessage_EchoBeforeAcknowledgement(t *testing.T) {
	f := newFixture(t, []*entities.Message{})
	require.NoError(t, f.conv.Start(context.Background()))

	stored := &entities.Message{ID: "m1", SenderID: me, ReceiverID: peer, Body: "hola", Timestamp: t0.Add(300 * time.Millisecond)}
	release := make(chan struct{})
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(m *entities.Message) bool { return m.Body == "hola" })).
		Run(func(mock.Arguments) { <-release }).
		Return(stored, nil)

	done := make(chan error)
	go func() {
		_, err := f.conv.SendMessage(context.Background(), "hola")
		done <- err
	}()

	require.Eventually(t, func() bool { return len(f.conv.Snapshot().Data) == 1 }, time.Second, 5*time.Millisecond)
	pending := f.conv.Snapshot().Data[0]
	assert.True(t, pending.Pending)
	assert.True(t, pending.IsTemporary())
	assert.False(t, pending.IsRead)

	f.echo(t, entities.OperationInsert, stored)
	require.Eventually(t, func() bool {
		data := f.conv.Snapshot().Data
		return len(data) == 1 && data[0].ID == "m1"
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-done)

	data := f.conv.Snapshot().Data
	require.Len(t, data, 1)
	assert.Equal(t, "m1", data[0].ID)
	assert.False(t, data[0].Pending)
}

func TestSendMessage_EchoAfterAcknowledgement(t *testing.T) {
	f := newFixture(t, []*entities.Message{})
	require.NoError(t, f.conv.Start(context.Background()))

	stored := &entities.Message{ID: "m1", SenderID: me, ReceiverID: peer, Body: "hola", Timestamp: t0}
	f.repo.On("Create", mock.Anything, mock.Anything).Return(stored, nil)

	got, err := f.conv.SendMessage(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	require.Len(t, f.conv.Snapshot().Data, 1)

	f.echo(t, entities.OperationInsert, stored)
	time.Sleep(50 * time.Millisecond)

	data := f.conv.Snapshot().Data
	require.Len(t, data, 1)
	assert.Equal(t, "m1", data[0].ID)
}

func TestSendMessage_FailureRollsBack(t *testing.T) {
	f := newFixture(t, []*entities.Message{
		{ID: "old", SenderID: peer, ReceiverID: me, Body: "antes", IsRead: true, Timestamp: t0.Add(-time.Hour)},
	})
	require.NoError(t, f.conv.Start(context.Background()))

	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed")).Once()

	_, err := f.conv.SendMessage(context.Background(), "hola")
	assert.EqualError(t, err, "insert failed")

	state := f.conv.Snapshot()
	assert.Equal(t, []string{"antes"}, bodies(state.Data))
	assert.EqualError(t, state.Err, "insert failed")
	f.repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestSendMessage_OutOfOrderEchoesKeepTimestampOrder(t *testing.T) {
	f := newFixture(t, []*entities.Message{})
	require.NoError(t, f.conv.Start(context.Background()))

	first := &entities.Message{ID: "m-first", SenderID: me, ReceiverID: peer, Body: "uno", Timestamp: t0.Add(100 * time.Millisecond)}
	second := &entities.Message{ID: "m-second", SenderID: me, ReceiverID: peer, Body: "dos", Timestamp: t0.Add(1100 * time.Millisecond)}

	release := make(chan struct{})
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(m *entities.Message) bool { return m.Body == "uno" })).
		Run(func(mock.Arguments) { <-release }).Return(first, nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(m *entities.Message) bool { return m.Body == "dos" })).
		Run(func(mock.Arguments) { <-release }).Return(second, nil)

	var wg sync.WaitGroup
	send := func(body string) {
		defer wg.Done()
		_, err := f.conv.SendMessage(context.Background(), body)
		assert.NoError(t, err)
	}
	wg.Add(1)
	go send("uno")
	require.Eventually(t, func() bool { return len(f.conv.Snapshot().Data) == 1 }, time.Second, 5*time.Millisecond)
	wg.Add(1)
	go send("dos")
	require.Eventually(t, func() bool { return len(f.conv.Snapshot().Data) == 2 }, time.Second, 5*time.Millisecond)

	f.echo(t, entities.OperationInsert, second)
	f.echo(t, entities.OperationInsert, first)

	require.Eventually(t, func() bool {
		data := f.conv.Snapshot().Data
		return len(data) == 2 && !data[0].Pending && !data[1].Pending
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"uno", "dos"}, bodies(f.conv.Snapshot().Data))

	close(release)
	wg.Wait()

	data := f.conv.Snapshot().Data
	assert.Equal(t, []string{"uno", "dos"}, bodies(data))
	assert.Equal(t, "m-first", data[0].ID)
	assert.Equal(t, "m-second", data[1].ID)
}

func TestConversation_IncomingMessageInserted(t *testing.T) {
	f := newFixture(t, []*entities.Message{
		{ID: "a", SenderID: me, ReceiverID: peer, Body: "uno", Timestamp: t0},
	})
	require.NoError(t, f.conv.Start(context.Background()))

	f.echo(t, entities.OperationInsert, &entities.Message{ID: "b", SenderID: peer, ReceiverID: me, Body: "dos", Timestamp: t0.Add(time.Minute), IsRead: true})
	f.echo(t, entities.OperationInsert, &entities.Message{ID: "x", SenderID: "someone", ReceiverID: me, Body: "otro"})

	require.Eventually(t, func() bool { return len(f.conv.Snapshot().Data) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"uno", "dos"}, bodies(f.conv.Snapshot().Data))
}

func TestConversation_LateEventAfterStop(t *testing.T) {
	f := newFixture(t, []*entities.Message{
		{ID: "a", SenderID: me, ReceiverID: peer, Body: "uno", Timestamp: t0},
	})
	require.NoError(t, f.conv.Start(context.Background()))
	before := f.conv.Snapshot()

	f.conv.Stop()
	f.echo(t, entities.OperationInsert, &entities.Message{ID: "late", SenderID: peer, ReceiverID: me, Body: "tarde", Timestamp: t0.Add(time.Minute)})
	time.Sleep(50 * time.Millisecond)

	after := f.conv.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, []string{"uno"}, bodies(after.Data))

	_, err := f.conv.SendMessage(context.Background(), "hola")
	assert.Error(t, err)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConversation_OpeningMarksUnreadInOneCall(t *testing.T) {
	history := []*entities.Message{
		{ID: "1", SenderID: peer, ReceiverID: me, Body: "a", Timestamp: t0},
		{ID: "2", SenderID: me, ReceiverID: peer, Body: "b", Timestamp: t0.Add(time.Second)},
		{ID: "3", SenderID: peer, ReceiverID: me, Body: "c", Timestamp: t0.Add(2 * time.Second)},
		{ID: "4", SenderID: peer, ReceiverID: me, Body: "d", IsRead: true, Timestamp: t0.Add(3 * time.Second)},
		{ID: "5", SenderID: peer, ReceiverID: me, Body: "e", Timestamp: t0.Add(4 * time.Second)},
	}
	f := newFixture(t, history)
	f.repo.On("MarkRead", mock.Anything, []string{"1", "3", "5"}).Return(nil).Once()

	require.NoError(t, f.conv.Start(context.Background()))

	f.repo.AssertNumberOfCalls(t, "MarkRead", 1)
	for _, m := range f.conv.Snapshot().Data {
		if m.ReceiverID == me {
			assert.True(t, m.IsRead, "message %s flipped locally", m.ID)
		}
	}
	assert.False(t, history[0].IsRead, "fetched records are not modified in place")
}

func TestConversation_OpeningWithNothingUnread(t *testing.T) {
	f := newFixture(t, []*entities.Message{
		{ID: "1", SenderID: peer, ReceiverID: me, Body: "a", IsRead: true, Timestamp: t0},
		{ID: "2", SenderID: me, ReceiverID: peer, Body: "b", Timestamp: t0.Add(time.Second)},
	})

	require.NoError(t, f.conv.Start(context.Background()))
	f.repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestConversation_ReadUpdateFailureKeepsUnread(t *testing.T) {
	f := newFixture(t, []*entities.Message{
		{ID: "1", SenderID: peer, ReceiverID: me, Body: "a", Timestamp: t0},
	})
	f.repo.On("MarkRead", mock.Anything, []string{"1"}).Return(errors.New("denied"))

	require.NoError(t, f.conv.Start(context.Background()))
	assert.False(t, f.conv.Snapshot().Data[0].IsRead)
}

func TestConversation_UpdateAndDeleteEvents(t *testing.T) {
	msg := &entities.Message{ID: "1", SenderID: me, ReceiverID: peer, Body: "a", Timestamp: t0}
	f := newFixture(t, []*entities.Message{msg})
	require.NoError(t, f.conv.Start(context.Background()))

	read := msg.Clone()
	read.IsRead = true
	f.echo(t, entities.OperationUpdate, read)
	require.Eventually(t, func() bool { return f.conv.Snapshot().Data[0].IsRead }, time.Second, 5*time.Millisecond)

	event, err := entities.NewChangeEvent(entities.TableMessages, entities.OperationDelete, nil, msg)
	require.NoError(t, err)
	require.NoError(t, f.feed.Publish(context.Background(), event))
	require.Eventually(t, func() bool { return len(f.conv.Snapshot().Data) == 0 }, time.Second, 5*time.Millisecond)
}

func newScriptedConversation(t *testing.T, repo *MockMessageRepository) (*chat.Conversation, *events.MemoryEventBus) {
	t.Helper()
	feed := events.NewMemoryEventBus()
	t.Cleanup(func() { feed.Close() })
	clock := &fakeClock{now: t0}
	conv := chat.NewConversation(chat.Options{Self: me, Peer: peer, Messages: repo, Feed: feed, Now: clock.Now})
	t.Cleanup(conv.Stop)
	return conv, feed
}

func TestConversation_SendFailingDuringRefetchStaysRemoved(t *testing.T) {
	repo := new(MockMessageRepository)
	repo.On("ListConversation", mock.Anything, me, peer).Return([]*entities.Message{}, nil).Once()

	fetchStarted := make(chan struct{})
	fetchRelease := make(chan struct{})
	repo.On("ListConversation", mock.Anything, me, peer).
		Run(func(mock.Arguments) {
			close(fetchStarted)
			<-fetchRelease
		}).
		Return([]*entities.Message{}, nil).Once()

	createRelease := make(chan struct{})
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-createRelease }).
		Return(nil, errors.New("insert failed")).Once()

	conv, _ := newScriptedConversation(t, repo)
	require.NoError(t, conv.Start(context.Background()))

	sendDone := make(chan error, 1)
	go func() {
		_, err := conv.SendMessage(context.Background(), "hola")
		sendDone <- err
	}()
	require.Eventually(t, func() bool { return len(conv.Snapshot().Data) == 1 }, time.Second, 5*time.Millisecond)

	refetchDone := make(chan error, 1)
	go func() { refetchDone <- conv.Refetch(context.Background()) }()
	<-fetchStarted

	// The send fails while the refetch is in flight.
	close(createRelease)
	assert.EqualError(t, <-sendDone, "insert failed")
	assert.Empty(t, conv.Snapshot().Data)

	close(fetchRelease)
	require.NoError(t, <-refetchDone)

	assert.Empty(t, conv.Snapshot().Data, "a rolled-back send must not come back with the refetch")
}

func TestConversation_PendingSendSurvivesRefetch(t *testing.T) {
	repo := new(MockMessageRepository)
	repo.On("ListConversation", mock.Anything, me, peer).Return([]*entities.Message{}, nil)

	release := make(chan struct{})
	stored := &entities.Message{ID: "m1", SenderID: me, ReceiverID: peer, Body: "hola", Timestamp: t0}
	repo.On("Create", mock.Anything, mock.Anything).Run(func(mock.Arguments) { <-release }).Return(stored, nil).Once()

	conv, _ := newScriptedConversation(t, repo)
	require.NoError(t, conv.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := conv.SendMessage(context.Background(), "hola")
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return len(conv.Snapshot().Data) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conv.Refetch(context.Background()))
	data := conv.Snapshot().Data
	require.Len(t, data, 1)
	assert.True(t, data[0].Pending)

	close(release)
	<-done
	data = conv.Snapshot().Data
	require.Len(t, data, 1)
	assert.Equal(t, "m1", data[0].ID)
	assert.False(t, data[0].Pending)
}

func TestConversation_PartialRowEventRefetches(t *testing.T) {
	big := &entities.Message{
		ID:         "m-big",
		SenderID:   me,
		ReceiverID: peer,
		Body:       strings.Repeat("x", 9000),
		Timestamp:  t0,
	}
	repo := new(MockMessageRepository)
	repo.On("ListConversation", mock.Anything, me, peer).Return([]*entities.Message{}, nil).Once()
	repo.On("ListConversation", mock.Anything, me, peer).Return([]*entities.Message{big}, nil)

	conv, feed := newScriptedConversation(t, repo)
	require.NoError(t, conv.Start(context.Background()))

	event := &entities.ChangeEvent{
		ID:        "e-big",
		Table:     entities.TableMessages,
		Operation: entities.OperationInsert,
		Record:    json.RawMessage(`{"id":"m-big","sender_id":"` + me + `","receiver_id":"` + peer + `","is_read":false}`),
		Partial:   true,
	}
	require.NoError(t, feed.Publish(context.Background(), event))

	require.Eventually(t, func() bool { return len(conv.Snapshot().Data) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, conv.Snapshot().Data[0].Body, 9000)
	repo.AssertNumberOfCalls(t, "ListConversation", 2)
}
