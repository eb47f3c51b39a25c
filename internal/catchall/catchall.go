// Package catchall implements the Catch-all Detector (C5): probes a
// random local part against the domain's MX hosts to infer whether
// the domain accepts any mailbox.
package catchall

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/yourusername/mailverify/internal/smtpprobe"
)

const localPartLen = 18
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Deadlines bundles the two probe deadlines a detection run needs.
type Deadlines struct {
	SMTP time.Duration
	DNS  time.Duration
}

// Result is the outcome of a catch-all detection run.
type Result struct {
	CatchAll      bool
	SMTPAttempted bool
	Reason        string
}

// Detect probes up to the first two MX hosts with a randomly
// generated local part. The first 2xx response concludes catch-all;
// a clean rejection concludes not-catch-all; SMTP errors/temporary
// failures on every probed host yield an inconclusive result.
func Detect(ctx context.Context, mxHosts []string, domain, mailFrom string, d Deadlines, reporter smtpprobe.BlockedReporter) Result {
	probe := randomLocalPart() + "@" + domain

	hosts := mxHosts
	if len(hosts) > 2 {
		hosts = hosts[:2]
	}

	for _, host := range hosts {
		res := smtpprobe.ProbeRCPT(ctx, host, probe, mailFrom, d.SMTP, d.DNS, reporter)
		if res.Accepted {
			return Result{CatchAll: true, SMTPAttempted: true, Reason: fmt.Sprintf("Random RCPT accepted on %s: %s", host, res.Detail)}
		}
		if strings.Contains(res.Detail, "SMTP error") || strings.Contains(res.Detail, "Temporary") {
			continue
		}
		return Result{CatchAll: false, SMTPAttempted: true, Reason: fmt.Sprintf("Random RCPT rejected on %s: %s", host, res.Detail)}
	}

	return Result{CatchAll: false, SMTPAttempted: false, Reason: "Could not reliably probe catch-all"}
}

func randomLocalPart() string {
	b := make([]byte, localPartLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			b[i] = alphabet[0]
			continue
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
