package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageRepository) ListByReceiver(ctx context.Context, receiverID int64, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, receiverID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) CountUnread(ctx context.Context, receiverID int64) (int, error) {
	args := m.Called(ctx, receiverID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, receiverID, messageID int64) error {
	return m.Called(ctx, receiverID, messageID).Error(0)
}

func (m *MockMessageRepository) ListConversation(ctx context.Context, userID, peerID int64) ([]domain.Message, error) {
	args := m.Called(ctx, userID, peerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkConversationRead(ctx context.Context, userID, peerID int64) (int, error) {
	args := m.Called(ctx, userID, peerID)
	return args.Int(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockInboxRepository struct {
	mock.Mock
}

func (m *MockInboxRepository) SaveIfNotExists(ctx context.Context, consumer, eventID, eventType string) (bool, error) {
	args := m.Called(ctx, consumer, eventID, eventType)
	return args.Bool(0), args.Error(1)
}

type stubTransactor struct{}

func (stubTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newService() (*NotificationService, *MockMessageRepository, *MockUserRepository, *MockInboxRepository) {
	messages := &MockMessageRepository{}
	users := &MockUserRepository{}
	inbox := &MockInboxRepository{}
	svc := NewNotificationService(messages, users, inbox, stubTransactor{}, SystemSender{UserID: 1, BaseURL: "https://r2r.local"}, nil)
	return svc, messages, users, inbox
}

func cancelledEvent() domain.BookingEvent {
	return domain.BookingEvent{
		ID:          "evt-1",
		Type:        domain.BookingCancelled,
		BookingID:   9,
		TourID:      10,
		TourTitle:   "Old Town walk",
		ActorID:     5,
		RecipientID: 2,
		RequesterID: 5,
		StartDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
		Hours:       2,
		TotalPrice:  3000,
	}
}

func TestNotificationService_HandleEvent(t *testing.T) {
	svc, messages, users, inbox := newService()
	ctx := context.Background()
	event := cancelledEvent()

	inbox.On("SaveIfNotExists", ctx, consumerName, "evt-1", "booking_cancelled").Return(true, nil).Once()
	users.On("GetByID", ctx, int64(5)).Return(&domain.User{ID: 5, Username: "anna"}, nil).Once()
	messages.On("Create", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return m.SenderID == 1 &&
			m.ReceiverID == 2 &&
			m.TourID != nil && *m.TourID == 10 &&
			m.Content == "Booking cancelled. Cancelled by: anna (https://r2r.local/api/v1/messages/5).\nBooking: \"Old Town walk\", 2024-06-10 to 2024-06-12."
	})).Return(nil).Once()

	require.NoError(t, svc.HandleEvent(ctx, event))
	messages.AssertExpectations(t)
	users.AssertExpectations(t)
	inbox.AssertExpectations(t)
}

func TestNotificationService_HandleEvent_Duplicate(t *testing.T) {
	svc, messages, _, inbox := newService()
	ctx := context.Background()

	inbox.On("SaveIfNotExists", ctx, consumerName, "evt-1", "booking_cancelled").Return(false, nil).Once()

	require.NoError(t, svc.HandleEvent(ctx, cancelledEvent()))
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotificationService_HandleEvent_NoRecipient(t *testing.T) {
	svc, messages, _, inbox := newService()
	event := cancelledEvent()
	event.RecipientID = 0

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	inbox.AssertNotCalled(t, "SaveIfNotExists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotificationService_HandleEvent_UnknownActor(t *testing.T) {
	svc, messages, users, inbox := newService()
	ctx := context.Background()

	inbox.On("SaveIfNotExists", ctx, consumerName, "evt-1", "booking_cancelled").Return(true, nil).Once()
	users.On("GetByID", ctx, int64(5)).Return(nil, fmt.Errorf("user 5: %w", domain.ErrNotFound)).Once()
	messages.On("Create", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return strings.Contains(m.Content, "user #5")
	})).Return(nil).Once()

	require.NoError(t, svc.HandleEvent(ctx, cancelledEvent()))
	messages.AssertExpectations(t)
}

func TestNotificationService_HandleEvent_StoreError(t *testing.T) {
	svc, messages, users, inbox := newService()
	ctx := context.Background()
	boom := errors.New("insert failed")

	inbox.On("SaveIfNotExists", ctx, consumerName, "evt-1", "booking_cancelled").Return(true, nil).Once()
	users.On("GetByID", ctx, int64(5)).Return(&domain.User{ID: 5, Username: "anna"}, nil).Once()
	messages.On("Create", ctx, mock.Anything).Return(boom).Once()

	assert.ErrorIs(t, svc.HandleEvent(ctx, cancelledEvent()), boom)
}

func TestNotificationService_HandlePayload(t *testing.T) {
	svc, messages, users, inbox := newService()
	ctx := context.Background()

	require.NoError(t, svc.HandlePayload(ctx, []byte("{not json")))
	inbox.AssertNotCalled(t, "SaveIfNotExists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	payload, err := json.Marshal(cancelledEvent())
	require.NoError(t, err)

	inbox.On("SaveIfNotExists", ctx, consumerName, "evt-1", "booking_cancelled").Return(true, nil).Once()
	users.On("GetByID", ctx, int64(5)).Return(&domain.User{ID: 5, Username: "anna"}, nil).Once()
	messages.On("Create", ctx, mock.Anything).Return(nil).Once()

	require.NoError(t, svc.HandlePayload(ctx, payload))
	messages.AssertExpectations(t)
}

func TestCompose(t *testing.T) {
	event := cancelledEvent()

	event.Type = domain.BookingCreated
	text := Compose(event, "anna", "https://r2r.local/messages/5")
	assert.True(t, containsAll(text, "New booking", "anna", "https://r2r.local/messages/5", "2024-06-10 to 2024-06-12", "2 h", "total 3000"))

	event.Type = domain.BookingEdited
	text = Compose(event, "guide", "link")
	assert.True(t, containsAll(text, "changed by the guide guide", "New dates: 2024-06-10 to 2024-06-12"))
}

func TestInbox(t *testing.T) {
	svc, messages, _, _ := newService()
	ctx := context.Background()
	list := []domain.Message{{ID: 1, ReceiverID: 5}}

	messages.On("ListByReceiver", ctx, int64(5), defaultInboxLimit).Return(list, nil).Once()
	messages.On("ListByReceiver", ctx, int64(5), maxInboxLimit).Return(list, nil).Once()
	messages.On("CountUnread", ctx, int64(5)).Return(3, nil).Once()
	messages.On("MarkRead", ctx, int64(5), int64(1)).Return(nil).Once()

	got, err := svc.ListInbox(ctx, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	_, err = svc.ListInbox(ctx, 5, 10_000)
	require.NoError(t, err)

	n, err := svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, svc.MarkRead(ctx, 5, 1))
	messages.AssertExpectations(t)
}

func TestResolveSystemSender(t *testing.T) {
	users := &MockUserRepository{}
	ctx := context.Background()

	users.On("GetByID", ctx, int64(1)).Return(&domain.User{ID: 1, Username: "platform"}, nil).Once()
	users.On("GetByID", ctx, int64(2)).Return(nil, domain.ErrNotFound).Once()

	sender, err := ResolveSystemSender(ctx, users, 1, "https://r2r.local/")
	require.NoError(t, err)
	assert.Equal(t, SystemSender{UserID: 1, BaseURL: "https://r2r.local"}, sender)

	_, err = ResolveSystemSender(ctx, users, 2, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ResolveSystemSender(ctx, users, 0, "")
	assert.Error(t, err)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

func TestNotificationService_ChatLinkPointsAtConversationRoute(t *testing.T) {
	svc, messages, users, inbox := newService()
	ctx := context.Background()

	inbox.On("SaveIfNotExists", ctx, consumerName, "evt-1", "booking_cancelled").Return(true, nil).Once()
	users.On("GetByID", ctx, int64(5)).Return(&domain.User{ID: 5, Username: "anna"}, nil).Once()
	messages.On("Create", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return strings.Contains(m.Content, "https://r2r.local/api/v1/messages/5")
	})).Return(nil).Once()

	require.NoError(t, svc.HandleEvent(ctx, cancelledEvent()))
	messages.AssertExpectations(t)
}

func TestConversation(t *testing.T) {
	svc, messages, users, _ := newService()
	ctx := context.Background()
	thread := []domain.Message{
		{ID: 1, SenderID: 5, ReceiverID: 7, Content: "hi"},
		{ID: 2, SenderID: 7, ReceiverID: 5, Content: "hello"},
	}

	users.On("GetByID", ctx, int64(7)).Return(&domain.User{ID: 7, Username: "guide"}, nil).Once()
	messages.On("MarkConversationRead", ctx, int64(5), int64(7)).Return(1, nil).Once()
	messages.On("ListConversation", ctx, int64(5), int64(7)).Return(thread, nil).Once()

	conv, err := svc.Conversation(ctx, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, "guide", conv.Peer.Username)
	assert.False(t, conv.ReadOnly)
	assert.Equal(t, thread, conv.Messages)
	messages.AssertExpectations(t)
}

func TestConversation_PlatformThreadIsReadOnly(t *testing.T) {
	svc, messages, users, _ := newService()
	ctx := context.Background()

	users.On("GetByID", ctx, int64(1)).Return(&domain.User{ID: 1, Username: "platform"}, nil).Once()
	messages.On("MarkConversationRead", ctx, int64(5), int64(1)).Return(2, nil).Once()
	messages.On("ListConversation", ctx, int64(5), int64(1)).Return([]domain.Message{}, nil).Once()

	conv, err := svc.Conversation(ctx, 5, 1)
	require.NoError(t, err)
	assert.True(t, conv.ReadOnly)
}

func TestConversation_UnknownPeer(t *testing.T) {
	svc, messages, users, _ := newService()
	ctx := context.Background()

	users.On("GetByID", ctx, int64(99)).Return(nil, fmt.Errorf("user 99: %w", domain.ErrNotFound)).Once()

	_, err := svc.Conversation(ctx, 5, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	messages.AssertNotCalled(t, "MarkConversationRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend(t *testing.T) {
	svc, messages, users, _ := newService()
	ctx := context.Background()

	users.On("GetByID", ctx, int64(7)).Return(&domain.User{ID: 7, Username: "guide"}, nil).Once()
	messages.On("Create", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return m.SenderID == 5 && m.ReceiverID == 7 && m.Content == "see you at noon"
	})).Return(nil).Once()

	msg, err := svc.Send(ctx, SendMessageInput{SenderID: 5, ReceiverID: 7, Content: "  see you at noon \n"})
	require.NoError(t, err)
	assert.Equal(t, "see you at noon", msg.Content)
	messages.AssertExpectations(t)
}

func TestSend_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		input   SendMessageInput
		wantErr error
	}{
		{"platform user", SendMessageInput{SenderID: 5, ReceiverID: 1, Content: "hi"}, domain.ErrForbidden},
		{"blank", SendMessageInput{SenderID: 5, ReceiverID: 7, Content: "   "}, domain.ErrInvalidInput},
		{"self", SendMessageInput{SenderID: 5, ReceiverID: 5, Content: "hi"}, domain.ErrInvalidInput},
		{"too long", SendMessageInput{SenderID: 5, ReceiverID: 7, Content: strings.Repeat("я", maxMessageLength+1)}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, messages, _, _ := newService()
			_, err := svc.Send(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestSend_UnknownReceiver(t *testing.T) {
	svc, messages, users, _ := newService()
	ctx := context.Background()

	users.On("GetByID", ctx, int64(99)).Return(nil, domain.ErrNotFound).Once()

	_, err := svc.Send(ctx, SendMessageInput{SenderID: 5, ReceiverID: 99, Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
