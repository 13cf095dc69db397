package subscribeto

import "context"

// Messenger is the out of band side channel for challenge codes. Real
// delivery is out of scope; the production binding logs instead of sending.
type Messenger interface {
	SendEmailCode(ctx context.Context, email, code string) error
	SendSMSCode(ctx context.Context, phone, code string) error
}

type logMessenger struct {
	logger Logger
}

// NewLogMessenger returns a Messenger that writes codes to the log.
func NewLogMessenger(logger Logger) Messenger {
	if logger == nil {
		logger = defLogger{}
	}
	return &logMessenger{logger: logger}
}

func (m *logMessenger) SendEmailCode(ctx context.Context, email, code string) error {
	m.logger.Info("email code dispatched", "email", email, "code", code)
	return nil
}

func (m *logMessenger) SendSMSCode(ctx context.Context, phone, code string) error {
	m.logger.Info("sms code dispatched", "phone", phone, "code", code)
	return nil
}
