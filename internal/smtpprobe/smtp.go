// Package smtpprobe implements the SMTP Prober (C3): a single bounded
// RCPT probe against one MX host. It never performs STARTTLS or AUTH
// and never retries — retry policy belongs to the caller.
package smtpprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/yourusername/mailverify/internal/dnsprobe"
)

// BlockedReporter receives timeout/connection-refused events so the
// SMTP-blocked sentinel (C4) can tell infrastructure-wide blocking
// apart from a single bad mailbox.
type BlockedReporter interface {
	RecordTimeout(ctx context.Context, host string)
}

// Result is the outcome of one RCPT probe.
type Result struct {
	Accepted bool
	Detail   string
	Short    string // e.g. "250 OK"; empty when no SMTP reply was read
}

// ProbeRCPT resolves mxHost, opens a bounded TCP connection to port
// 25, and issues EHLO/HELO, MAIL FROM, RCPT TO for candidate. Every
// socket/SMTP failure is folded into Result rather than returned as
// an error — nothing here escapes as an exception.
func ProbeRCPT(ctx context.Context, mxHost, candidate, mailFrom string, smtpDeadline, dnsDeadline time.Duration, reporter BlockedReporter) Result {
	ip, ok := dnsprobe.ResolveToIP(ctx, mxHost, dnsDeadline)
	if !ok {
		return Result{Accepted: false, Detail: "SMTP error: DNS timeout or no A/AAAA"}
	}

	dialCtx, cancel := context.WithTimeout(ctx, dnsprobe.ClampDeadline(smtpDeadline))
	defer cancel()

	d := net.Dialer{}
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(ip, "25"))
	if err != nil {
		if isTimeoutOrRefused(err) && reporter != nil {
			reporter.RecordTimeout(ctx, mxHost)
		}
		return Result{Accepted: false, Detail: fmt.Sprintf("SMTP error: %s", classify(err))}
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(dnsprobe.ClampDeadline(smtpDeadline)))

	client, err := smtp.NewClient(conn, mxHost)
	if err != nil {
		return Result{Accepted: false, Detail: fmt.Sprintf("SMTP error: %s", classify(err))}
	}
	defer client.Close()

	if err := client.Hello(mxHost); err != nil {
		if isTimeoutOrRefused(err) && reporter != nil {
			reporter.RecordTimeout(ctx, mxHost)
		}
		return Result{Accepted: false, Detail: fmt.Sprintf("SMTP error: %s", classify(err))}
	}

	if err := client.Mail(mailFrom); err != nil {
		return Result{Accepted: false, Detail: fmt.Sprintf("SMTP error: %s", classify(err))}
	}

	err = client.Rcpt(candidate)
	_ = client.Quit()

	if err == nil {
		return Result{Accepted: true, Detail: "RCPT accepted (250)", Short: "250 OK"}
	}

	code, text := parseSMTPError(err)
	if code == 0 {
		if isTimeoutOrRefused(err) && reporter != nil {
			reporter.RecordTimeout(ctx, mxHost)
		}
		return Result{Accepted: false, Detail: fmt.Sprintf("SMTP error: %s", classify(err))}
	}

	short := fmt.Sprintf("%d %s", code, text)
	switch {
	case code >= 200 && code < 300:
		return Result{Accepted: true, Detail: fmt.Sprintf("RCPT accepted (%d)", code), Short: short}
	case code >= 400 && code < 500:
		return Result{Accepted: false, Detail: fmt.Sprintf("Temporary failure (%d)", code), Short: short}
	default:
		return Result{Accepted: false, Detail: fmt.Sprintf("Rejected (%d)", code), Short: short}
	}
}

func parseSMTPError(err error) (int, string) {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code, strings.TrimSpace(protoErr.Msg)
	}
	return 0, ""
}

func classify(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}
	return fmt.Sprintf("%T", err)
}

func isTimeoutOrRefused(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}
