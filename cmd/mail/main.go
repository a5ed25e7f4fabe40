package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

type mailTemplate struct {
	file    string
	subject string
}

// 邮件类型与 handler 中发布的类型一一对应
var mailTemplates = map[string]mailTemplate{
	"create_user":      {file: "templates/new_account_email.html", subject: "分队编排系统 - 账户信息"},
	"reset_password":   {file: "templates/reset_password_otp_email.html", subject: "分队编排系统 - 重置密码"},
	"assignment_ready": {file: "templates/assignment_ready_email.html", subject: "分队编排系统 - 分队方案已生成"},
}

func parseTemplates() (map[string]*template.Template, error) {
	parsed := make(map[string]*template.Template, len(mailTemplates))
	for typ, mt := range mailTemplates {
		tmpl, err := template.ParseFS(templateFS, mt.file)
		if err != nil {
			return nil, fmt.Errorf("无法解析邮件模板 %s: %w", mt.file, err)
		}
		parsed[typ] = tmpl
	}
	return parsed, nil
}

// buildMessage 根据队列中的消息构建邮件，返回的错误说明这条消息无法被处理，不应重新入队。
// data 会被反序列化成 map，所以模板中使用 json 字段名。
func buildMessage(from string, body []byte, templates map[string]*template.Template) (*mail.Msg, error) {
	mailMessage := domain.MailMessage{}
	if err := json.Unmarshal(body, &mailMessage); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	tmpl, ok := templates[mailMessage.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型 %q", mailMessage.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(mailMessage.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, mailMessage.Data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(mailTemplates[mailMessage.Type].subject)

	return msg, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", "error", err)
		os.Exit(1)
	}

	templates, err := parseTemplates()
	if err != nil {
		logger.Error("无法加载邮件模板", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
		mail.WithTimeout(time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancelDial()
	if err := client.DialWithContext(dialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * 连接 RabbitMQ 并开始消费
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	// 与 cmd/api 声明的队列参数必须一致
	q, err := ch.QueueDeclare("email_queue", true, false, false, false, nil)
	if err != nil {
		logger.Error("无法声明队列", "error", err)
		os.Exit(1)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("无法消费消息", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-msgs:
				if !ok {
					logger.Warn("消息通道已关闭")
					return
				}

				m, err := buildMessage(cfg.Email.SMTP.Username, delivery.Body, templates)
				if err != nil {
					logger.Error("无法处理邮件消息", "error", err)
					_ = delivery.Nack(false, false)
					continue
				}

				if err := client.DialAndSendWithContext(ctx, m); err != nil {
					logger.Error("邮件发送失败", "error", err)
					_ = delivery.Nack(false, true) // 重新入队
					continue
				}

				logger.Info("邮件已发送", "to", m.GetToString())
				_ = delivery.Ack(false)
			}
		}
	}()

	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	logger.Info("正在关闭 mail worker...")
	cancel()
	wg.Wait()
	logger.Info("mail worker 已成功关闭")
}
