package notify

import (
	"context"
	"sync"

	"github.com/princinho/moviebackend/models"
	"go.uber.org/zap"
)

const (
	KindVerification  = "email_verification"
	KindPasswordReset = "password_reset"
)

// Mailer delivers single-use account tokens to their owner.
type Mailer interface {
	SendVerification(ctx context.Context, user *models.User, token string) error
	SendPasswordReset(ctx context.Context, user *models.User, token string) error
}

// LogMailer writes delivery events to the log. The link itself is only
// logged when RevealLinks is set, which main does in development.
type LogMailer struct {
	logger      *zap.Logger
	baseURL     string
	revealLinks bool
}

func NewLogMailer(logger *zap.Logger, baseURL string, revealLinks bool) *LogMailer {
	return &LogMailer{logger: logger, baseURL: baseURL, revealLinks: revealLinks}
}

func (m *LogMailer) SendVerification(_ context.Context, user *models.User, token string) error {
	m.send(KindVerification, user, m.baseURL+"/verify-email/"+token)
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, user *models.User, token string) error {
	m.send(KindPasswordReset, user, m.baseURL+"/reset-password/"+token)
	return nil
}

func (m *LogMailer) send(kind string, user *models.User, link string) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("user_id", user.ID.Hex()),
	}
	if m.revealLinks {
		fields = append(fields, zap.String("link", link))
	}
	m.logger.Info("account email queued", fields...)
}

type Message struct {
	Kind   string
	UserID string
	Email  string
	Token  string
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) SendVerification(_ context.Context, user *models.User, token string) error {
	r.record(KindVerification, user, token)
	return nil
}

func (r *Recorder) SendPasswordReset(_ context.Context, user *models.User, token string) error {
	r.record(KindPasswordReset, user, token)
	return nil
}

func (r *Recorder) record(kind string, user *models.User, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Kind: kind, UserID: user.ID.Hex(), Email: user.Email, Token: token})
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message of kind, if any.
func (r *Recorder) Last(kind string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Kind == kind {
			return r.messages[i], true
		}
	}
	return Message{}, false
}
