package email

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Sender envía los códigos de inicio de sesión sin contraseña.
type Sender interface {
	SendVerificationOTP(ctx context.Context, toEmail string, code string, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationOTP(_ context.Context, _ string, _ string, _ time.Time) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// logSender escribe el mensaje en el log en vez de enviarlo. Solo para desarrollo local.
type logSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSender{logger: logger}
}

func (s *logSender) SendVerificationOTP(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	msg := otpMessage(toEmail, code, expiresAt)
	s.logger.Info("email not sent (log only)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
