package email

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/Calum-Kerr/revisepdf-front/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// LimitNotice 配额用尽提醒的内容
type LimitNotice struct {
	TierName   string
	Daily      bool // true 为每日配额，false 为周期配额
	Limit      int
	ResetsAt   time.Time
	UpgradeURL string
}

// SendLimitReached 发送配额用尽提醒
func (s *Service) SendLimitReached(to string, n LimitNotice) error {
	subject, body := RenderLimitReached(n)
	return s.sendHTML(to, subject, body)
}

// RenderLimitReached 生成提醒邮件的标题和正文
func RenderLimitReached(n LimitNotice) (subject, body string) {
	window := "billing period"
	resets := n.ResetsAt.UTC().Format("January 2, 2006")
	if n.Daily {
		window = "day"
		resets = "tomorrow (UTC)"
	}

	subject = fmt.Sprintf("You've used all %d files for this %s - RevisePDF", n.Limit, window)

	upgrade := ""
	if n.UpgradeURL != "" {
		upgrade = fmt.Sprintf(`
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Upgrade your plan</a>
        </div>`, html.EscapeString(n.UpgradeURL))
	}

	body = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">File limit reached</h2>
        <p>Hello,</p>
        <p>Your %s plan includes %d files per %s and you have now used all of them.</p>
        <p>Your allowance resets %s.</p>%s
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This email was sent automatically, please do not reply.</p>
    </div>
</body>
</html>
`, html.EscapeString(n.TierName), n.Limit, window, resets, upgrade)

	return subject, body
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	headers := []string{
		"From: " + s.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(h)
		msg.WriteString("\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
