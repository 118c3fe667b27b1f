package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/metrics"
	"github.com/VK7Cuber/Room2room-Tour/internal/repository"
	"go.uber.org/zap"
)

// consumerName keys this consumer's rows in inbox_events.
const consumerName = "booking-notifications"

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
	maxMessageLength  = 4000
)

type MessageUseCase interface {
	ListInbox(ctx context.Context, userID int64, limit int) ([]domain.Message, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, messageID int64) error
	Conversation(ctx context.Context, userID, peerID int64) (*Conversation, error)
	Send(ctx context.Context, input SendMessageInput) (*domain.Message, error)
}

// Conversation is the thread between the caller and one peer. The platform user's thread is
// read-only.
type Conversation struct {
	Peer     domain.User      `json:"peer"`
	ReadOnly bool             `json:"read_only"`
	Messages []domain.Message `json:"messages"`
}

type SendMessageInput struct {
	SenderID   int64
	ReceiverID int64
	TourID     *int64
	Content    string
}

// SystemSender is the platform account that authors booking notifications.
type SystemSender struct {
	UserID  int64
	BaseURL string
}

// ResolveSystemSender checks once, at startup, that the configured platform user exists.
func ResolveSystemSender(ctx context.Context, users repository.UserRepository, userID int64, baseURL string) (SystemSender, error) {
	if userID <= 0 {
		return SystemSender{}, errors.New("platform system user id is not configured")
	}
	if _, err := users.GetByID(ctx, userID); err != nil {
		return SystemSender{}, fmt.Errorf("resolve platform user: %w", err)
	}
	return SystemSender{UserID: userID, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

type NotificationService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	inbox    repository.InboxRepository
	tx       repository.Transactor
	sender   SystemSender
	logger   *zap.Logger
}

func NewNotificationService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	inbox repository.InboxRepository,
	tx repository.Transactor,
	sender SystemSender,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		messages: messages,
		users:    users,
		inbox:    inbox,
		tx:       tx,
		sender:   sender,
		logger:   logger,
	}
}

// HandlePayload decodes a booking event from Kafka and stores the notification.
// Undecodable payloads are logged and dropped.
func (s *NotificationService) HandlePayload(ctx context.Context, payload []byte) error {
	var event domain.BookingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn("drop undecodable booking event", zap.Error(err))
		return nil
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent writes one message to the event's recipient. Redelivered events are skipped.
func (s *NotificationService) HandleEvent(ctx context.Context, event domain.BookingEvent) error {
	if event.ID == "" || event.RecipientID == 0 {
		s.logger.Debug("booking event without recipient", zap.String("event_id", event.ID))
		return nil
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		fresh, err := s.inbox.SaveIfNotExists(ctx, consumerName, event.ID, string(event.Type))
		if err != nil {
			return err
		}
		if !fresh {
			metrics.NotificationsDuplicate.Inc()
			return nil
		}

		msg := &domain.Message{
			SenderID:   s.sender.UserID,
			ReceiverID: event.RecipientID,
			Content:    Compose(event, s.username(ctx, event.ActorID), s.chatLink(event.ActorID)),
		}
		if event.TourID != 0 {
			tourID := event.TourID
			msg.TourID = &tourID
		}
		if err := s.messages.Create(ctx, msg); err != nil {
			return err
		}

		metrics.NotificationsStored.WithLabelValues(string(event.Type)).Inc()
		s.logger.Info("booking notification stored",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Int64("receiver_id", event.RecipientID))
		return nil
	})
}

func (s *NotificationService) ListInbox(ctx context.Context, userID int64, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	return s.messages.ListByReceiver(ctx, userID, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.messages.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, messageID int64) error {
	return s.messages.MarkRead(ctx, userID, messageID)
}

// Conversation marks the peer's messages to userID as read and returns the whole thread.
func (s *NotificationService) Conversation(ctx context.Context, userID, peerID int64) (*Conversation, error) {
	peer, err := s.users.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}

	conv := &Conversation{Peer: *peer, ReadOnly: s.isSystem(peerID)}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.messages.MarkConversationRead(ctx, userID, peerID); err != nil {
			return err
		}
		thread, err := s.messages.ListConversation(ctx, userID, peerID)
		if err != nil {
			return err
		}
		conv.Messages = thread
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Send stores a direct message. Nobody can write to the platform user.
func (s *NotificationService) Send(ctx context.Context, input SendMessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	switch {
	case content == "":
		return nil, fmt.Errorf("empty message: %w", domain.ErrInvalidInput)
	case utf8.RuneCountInString(content) > maxMessageLength:
		return nil, fmt.Errorf("message longer than %d characters: %w", maxMessageLength, domain.ErrInvalidInput)
	case input.ReceiverID == input.SenderID:
		return nil, fmt.Errorf("cannot message yourself: %w", domain.ErrInvalidInput)
	case s.isSystem(input.ReceiverID):
		return nil, fmt.Errorf("platform thread is read-only: %w", domain.ErrForbidden)
	}

	if _, err := s.users.GetByID(ctx, input.ReceiverID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		TourID:     input.TourID,
		Content:    content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *NotificationService) isSystem(userID int64) bool {
	return s.sender.UserID != 0 && userID == s.sender.UserID
}

func (s *NotificationService) username(ctx context.Context, userID int64) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("resolve username", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Sprintf("user #%d", userID)
	}
	return u.Username
}

func (s *NotificationService) chatLink(userID int64) string {
	return fmt.Sprintf("%s/api/v1/messages/%d", s.sender.BaseURL, userID)
}

// Compose renders the notification text for event. actor is the display name of whoever acted.
func Compose(event domain.BookingEvent, actor, chatLink string) string {
	dates := fmt.Sprintf("%s to %s", event.StartDate.Format(domain.DateLayout), event.EndDate.Format(domain.DateLayout))

	switch event.Type {
	case domain.BookingCreated:
		return fmt.Sprintf("New booking for %q. Client: %s (%s).\nDates: %s, %d h, total %d.",
			event.TourTitle, actor, chatLink, dates, event.Hours, event.TotalPrice)
	case domain.BookingEdited:
		return fmt.Sprintf("Your booking for %q was changed by the guide %s (%s).\nNew dates: %s, %d h, total %d.",
			event.TourTitle, actor, chatLink, dates, event.Hours, event.TotalPrice)
	case domain.BookingCancelled:
		return fmt.Sprintf("Booking cancelled. Cancelled by: %s (%s).\nBooking: %q, %s.",
			actor, chatLink, event.TourTitle, dates)
	default:
		return fmt.Sprintf("Booking %d updated by %s (%s): %s.", event.BookingID, actor, chatLink, dates)
	}
}

var _ MessageUseCase = (*NotificationService)(nil)
