package engine

import (
	"context"
	"errors"
	"net"
	"net/textproto"

	"github.com/badoux/checkmail"
	"gopkg.in/gomail.v2"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/utils"
)

// EmailSender delivers campaign email over SMTP.
type EmailSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// TrackingBase/TrackingSecret drive open/click URL injection
	TrackingBase   string
	TrackingSecret string
}

func (s *EmailSender) Channel() string { return models.ChannelEmail }

func (s *EmailSender) ValidateAddress(address string) error {
	return checkmail.ValidateFormat(address)
}

// Send delivers one message. Connection-level failures and auth/service
// replies are reported as *SenderUnavailableError so the dispatcher can
// retry; a recipient rejection by the server is a bounce for this recipient
// only.
func (s *EmailSender) Send(ctx context.Context, address, subject, body string, opts TrackingOptions) (*DeliveryOutcome, error) {
	if err := s.ValidateAddress(address); err != nil {
		return &DeliveryOutcome{Status: OutcomeFailed, Reason: "invalid address: " + err.Error()}, nil
	}

	html := body
	if opts.TrackOpens || opts.TrackClicks || opts.UnsubscribeLink {
		html = utils.InjectTracking(body, s.TrackingBase, opts.MessageID, s.TrackingSecret,
			opts.TrackOpens, opts.TrackClicks, opts.UnsubscribeLink)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", address)
	m.SetHeader("Subject", subject)
	m.SetHeader("X-Message-ID", opts.MessageID)
	m.SetBody("text/html", html)

	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)

	// gomail has no context support; run the dial+send in a goroutine and
	// honor the per-call timeout through ctx.
	errCh := make(chan error, 1)
	go func() { errCh <- d.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return &DeliveryOutcome{Status: OutcomeFailed, Reason: "send timed out"}, nil
	case err := <-errCh:
		if err == nil {
			return &DeliveryOutcome{Status: OutcomeDelivered}, nil
		}
		return classifySMTPError(s.Channel(), err)
	}
}

// classifySMTPError maps a dial-and-send failure onto the outcome model.
// Connection-level errors and auth/service replies poison every send, so they
// are retryable outages; anything else is a rejection of this recipient only.
func classifySMTPError(channel string, err error) (*DeliveryOutcome, error) {
	var netErr net.Error
	var opErr *net.OpError
	if errors.As(err, &netErr) || errors.As(err, &opErr) {
		return nil, &SenderUnavailableError{Channel: channel, Err: err}
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && smtpServiceCode(protoErr.Code) {
		return nil, &SenderUnavailableError{Channel: channel, Err: err}
	}

	return &DeliveryOutcome{Status: OutcomeBounced, Reason: err.Error()}, nil
}

// smtpServiceCode reports whether an SMTP reply code signals a server or
// credential problem rather than a recipient rejection.
func smtpServiceCode(code int) bool {
	switch code {
	case 421, 454, 530, 534, 535, 538:
		return true
	}
	return false
}
