package notification

import (
	"fmt"
	"net/smtp"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mail sends signal notifications by e-mail
type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string
	to                string
	from              string
	log               logger.Logger
	send              sendMailFunc
}

// MailParams contains all parameters needed to initialize a Mail instance
type MailParams struct {
	SMTPServerPort    int
	SMTPServerAddress string
	To                string
	From              string
	Password          string
	Logger            logger.Logger
}

var _ core.Notifier = Mail{}

// NewMail creates a new Mail instance with the provided parameters
func NewMail(params MailParams) Mail {
	log := params.Logger
	if log == nil {
		log = defaultLogger()
	}

	return Mail{
		from:              params.From,
		to:                params.To,
		smtpServerPort:    params.SMTPServerPort,
		smtpServerAddress: params.SMTPServerAddress,
		auth: smtp.PlainAuth(
			"",
			params.From,
			params.Password,
			params.SMTPServerAddress,
		),
		log:  log,
		send: smtp.SendMail,
	}
}

func (m Mail) message(subject, body string) []byte {
	return []byte(fmt.Sprintf("To: %q <%s>\r\nFrom: %q <%s>\r\nSubject: %s\r\n\r\n%s\r\n",
		"User", m.to, "Chart Studies", m.from, subject, body))
}

func (m Mail) deliver(subject, body string) {
	serverAddress := fmt.Sprintf("%s:%d", m.smtpServerAddress, m.smtpServerPort)

	err := m.send(serverAddress, m.auth, m.from, []string{m.to}, m.message(subject, body))
	if err != nil {
		m.log.WithError(err).Error("notification/mail: failed to send email")
	}
}

// Notify sends a plain notification
func (m Mail) Notify(text string) {
	m.deliver("Chart studies", text)
}

// OnSignal sends one e-mail per signal
func (m Mail) OnSignal(signal core.Signal) {
	m.deliver(signalTitle(signal), signalBody(signal))
}

// OnError sends an error notification
func (m Mail) OnError(err error) {
	m.deliver("🛑 ERROR", fmt.Sprintf("Error %s", err))
}
