package email

import (
	"crypto/tls"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/yeren66/LLM4ArxivPaper/internal/config"
	"github.com/yeren66/LLM4ArxivPaper/internal/core"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

// Sender delivers the run digest as an HTML email over SMTP.
type Sender struct {
	cfg    config.Email
	now    func() time.Time
	sendFn func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSender returns a sender for the given delivery configuration.
func NewSender(cfg config.Email) *Sender {
	s := &Sender{cfg: cfg, now: time.Now}
	s.sendFn = s.send
	return s
}

// Send delivers the digest to the configured recipients. It is a silent no-op
// when delivery is not fully configured. Delivery failures are logged and
// returned so the caller can decide; a run never depends on email succeeding.
func (s *Sender) Send(result core.PipelineResult) error {
	if !s.cfg.Deliverable() {
		logger.Debug("email delivery not configured, skipping")
		return nil
	}

	subject := s.Subject(len(result.Summaries))
	body := buildHTMLBody(result, s.now())
	msg := formatMessage(s.cfg.Sender, s.cfg.Recipients, subject, body)

	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}

	if err := s.sendFn(addr, auth, s.cfg.Sender, s.cfg.Recipients, msg); err != nil {
		logger.Warn("digest email delivery failed", "host", s.cfg.SMTPHost, "error", err.Error())
		return fmt.Errorf("sending digest email: %w", err)
	}

	logger.Info("digest email sent", "recipients", len(s.cfg.Recipients), "papers", len(result.Summaries))
	return nil
}

// Subject expands the configured subject template for this run.
func (s *Sender) Subject(paperCount int) string {
	replacer := strings.NewReplacer(
		"{run_date}", s.now().UTC().Format("2006-01-02"),
		"{paper_count}", strconv.Itoa(paperCount),
	)
	return replacer.Replace(s.cfg.SubjectTemplate)
}

// send picks the transport: implicit TLS when use_ssl is set, otherwise a
// plain connection upgraded via STARTTLS when the server offers it.
func (s *Sender) send(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if s.cfg.UseSSL {
		return s.sendImplicitTLS(addr, auth, from, to, msg)
	}
	return smtp.SendMail(addr, auth, from, to, msg)
}

func (s *Sender) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	dialer := &net.Dialer{Timeout: s.cfg.TimeoutDuration()}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.cfg.SMTPHost})
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("smtp RCPT %s: %w", recipient, err)
		}
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}
	return client.Quit()
}

func formatMessage(from string, to []string, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, strings.Join(to, ", "), subject, body))
}

// buildHTMLBody renders the digest grouped by topic, with run stats up top.
func buildHTMLBody(result core.PipelineResult, sentAt time.Time) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #1e293b; }
h1 { color: #0f172a; border-bottom: 2px solid #2563eb; padding-bottom: 10px; }
h2 { color: #1e293b; margin-top: 28px; }
.stats { background: #f1f5f9; padding: 14px 18px; border-radius: 8px; margin-bottom: 20px; font-size: 0.95em; }
.paper { border: 1px solid #e2e8f0; border-radius: 8px; padding: 15px 18px; margin-bottom: 14px; }
.paper h3 { margin-top: 0; color: #1d4ed8; }
.meta { color: #64748b; font-size: 0.9em; margin-bottom: 10px; }
.empty { color: #64748b; font-style: italic; }
</style></head><body>`)

	sb.WriteString("<h1>arXiv Digest</h1>")
	sb.WriteString(fmt.Sprintf("<p><em>%s</em></p>", sentAt.UTC().Format("January 2, 2006")))

	topicOrder, byTopic := groupByTopic(result.Summaries)
	sb.WriteString(fmt.Sprintf(
		`<div class="stats">%d papers across %d topics · average score %.1f/100</div>`,
		len(result.Summaries), len(topicOrder), result.AverageScore()))

	if len(result.Summaries) == 0 {
		sb.WriteString(`<p class="empty">No papers cleared the relevance threshold in this run.</p>`)
	}

	for _, name := range topicOrder {
		group := byTopic[name]
		sb.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(group[0].Topic.DisplayName())))
		for _, summary := range group {
			sb.WriteString(`<div class="paper">`)
			sb.WriteString(fmt.Sprintf(`<h3><a href="%s">%s</a></h3>`,
				summary.Paper.ArxivURL, html.EscapeString(summary.Paper.Title)))
			sb.WriteString(fmt.Sprintf(`<div class="meta">%s · %s · score %.1f/100</div>`,
				html.EscapeString(strings.Join(summary.Paper.Authors, ", ")),
				summary.Paper.Published.Format("2006-01-02"),
				summary.NormalizedScore()))
			if summary.BriefSummary != "" {
				sb.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(firstParagraph(summary.BriefSummary))))
			}
			sb.WriteString("</div>")
		}
	}

	sb.WriteString("</body></html>")
	return sb.String()
}

// groupByTopic preserves the order topics first appear in the summary list.
func groupByTopic(summaries []core.PaperSummary) ([]string, map[string][]core.PaperSummary) {
	var order []string
	groups := make(map[string][]core.PaperSummary)
	for _, summary := range summaries {
		name := summary.Topic.Name
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], summary)
	}
	return order, groups
}

func firstParagraph(text string) string {
	if idx := strings.Index(text, "\n\n"); idx > 0 {
		return text[:idx]
	}
	return text
}
