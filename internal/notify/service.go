package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"gymcore/internal/logger"
	"gymcore/internal/metrics"
)

const (
	eventQueue       = "events"
	eventFailedQueue = "events:failed"
	maxTries         = 3
)

// Publisher is the outbound side of the notification collaborator. Publish
// failures are non-fatal to the caller's transaction; callers log and move on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Publish(ctx context.Context, ev Event) error {
	ev.Tries = 0
	if ev.Created.IsZero() {
		ev.Created = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordEventPublished(string(ev.Type), "error")
		return err
	}

	if err := s.redis.LPush(ctx, eventQueue, data).Err(); err != nil {
		metrics.RecordEventPublished(string(ev.Type), "error")
		logger.Errorf("Failed to queue %s event for %s: %v", ev.Type, ev.Email, err)
		return err
	}

	metrics.RecordEventPublished(string(ev.Type), "queued")
	logger.Infof("Event queued: %s for %s", ev.Type, ev.Email)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, eventQueue).Result()
	if err != nil {
		return
	}

	metrics.EventQueueLength.Set(float64(s.QueueLength(ctx)))

	var ev Event
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		logger.Errorf("Bad event data: %v", err)
		return
	}

	ev.Tries++
	subject, body := s.render(ev)

	if err := s.sendNow(ev.Email, subject, body); err != nil {
		logger.Errorf("Failed to send %s email to %s: %v", ev.Type, ev.Email, err)
		metrics.RecordEmail(string(ev.Type), "error")

		if ev.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(ev)
			s.redis.LPush(context.Background(), eventQueue, data)
			logger.Infof("Retrying %s email to %s (attempt %d)", ev.Type, ev.Email, ev.Tries+1)
		} else {
			logger.Errorf("Event %s for %s failed after %d attempts", ev.Type, ev.Email, maxTries)
			s.saveFailed(ev, err)
		}
		return
	}

	metrics.RecordEmail(string(ev.Type), "sent")
	logger.Infof("Email sent: %s to %s", ev.Type, ev.Email)
}

func (s *Service) render(ev Event) (subject, body string) {
	switch ev.Type {
	case EventBookingConfirmed:
		subject = "Booking Confirmed - " + ev.ClassName
		body = fmt.Sprintf(`Hi %s,

Your booking is confirmed!

Class: %s
Time: %s

See you at the gym!

- Gymcore Team`, ev.Name, ev.ClassName, formatWhen(ev.ScheduleStart))

	case EventBookingWaitlisted:
		subject = "You're on the Waitlist - " + ev.ClassName
		body = fmt.Sprintf(`Hi %s,

The class is currently full, so we've added you to the waitlist:

Class: %s
Time: %s

We'll confirm your spot automatically if a seat frees up.

- Gymcore Team`, ev.Name, ev.ClassName, formatWhen(ev.ScheduleStart))

	case EventPaymentInstructions:
		subject = "Payment Instructions - " + ev.Reference
		body = fmt.Sprintf(`Hi %s,

Please transfer %s to complete your payment:

Bank: %s
Account: %s
Reference: %s

Upload your proof of payment in the member portal once done.

- Gymcore Team`, ev.Name, formatAmount(ev.AmountCents), ev.BankName, ev.BankAccount, ev.Reference)

	case EventPaymentReceipt:
		subject = "Payment Received - " + ev.Reference
		body = fmt.Sprintf(`Hi %s,

We've received your payment of %s (reference %s).
Your membership is now active.

- Gymcore Team`, ev.Name, formatAmount(ev.AmountCents), ev.Reference)

	default:
		subject = "Gymcore Notification"
		body = fmt.Sprintf("Hi %s,\n\nYou have a new notification.\n\n- Gymcore Team", ev.Name)
	}

	return subject, body
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "TBD"
	}
	return t.Format("Jan 2, 2006 at 3:04 PM")
}

func formatAmount(cents *int64) string {
	if cents == nil {
		return "the agreed amount"
	}
	return fmt.Sprintf("%.2f", float64(*cents)/100)
}

func (s *Service) sendNow(to, subject, body string) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "\r\n" + body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
}

func (s *Service) saveFailed(ev Event, err error) {
	failed := map[string]interface{}{
		"event": ev,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), eventFailedQueue, data)
	logger.Errorf("Event moved to failed queue: %s for %s", ev.Type, ev.Email)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, eventQueue).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
