package handler

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

// 邮件类型，与 cmd/mail 中的模板一一对应
const (
	mailTypeCreateUser     = "create_user"
	mailTypeResetPassword  = "reset_password"
	mailTypeAssignmentDone = "assignment_ready"
)

// publishMail 将邮件序列化后发送到 email_queue，由 cmd/mail 负责真正发送
func (h *Handler) publishMail(msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
